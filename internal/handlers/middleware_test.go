package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sabeo/internal/security"
)

func testMiddleware(serviceToken string) *Middleware {
	return NewMiddleware(
		serviceToken,
		security.NewGuestTokens("test-secret", time.Hour),
		security.NewRateLimiter(1000, time.Minute),
		false,
	)
}

func TestRequireServiceRejectsMissingToken(t *testing.T) {
	m := testMiddleware("s3cret")
	handler := m.RequireService(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	})

	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest("POST", "/api/trigger", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestRequireServiceRejectsWrongToken(t *testing.T) {
	m := testMiddleware("s3cret")
	handler := m.RequireService(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a wrong token")
	})

	req := httptest.NewRequest("POST", "/api/trigger", nil)
	req.Header.Set("Authorization", "Bearer nope")
	recorder := httptest.NewRecorder()
	handler(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestRequireServiceRejectsWhenUnconfigured(t *testing.T) {
	// An empty configured token must never mean "open access".
	m := testMiddleware("")
	handler := m.RequireService(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a configured token")
	})

	req := httptest.NewRequest("POST", "/api/trigger", nil)
	req.Header.Set("Authorization", "Bearer ")
	recorder := httptest.NewRecorder()
	handler(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestRequireServiceAcceptsToken(t *testing.T) {
	m := testMiddleware("s3cret")
	ran := false
	handler := m.RequireService(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/api/trigger", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	recorder := httptest.NewRecorder()
	handler(recorder, req)

	if !ran {
		t.Fatal("expected handler to run")
	}
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestRequirePlayerResolvesGuestToken(t *testing.T) {
	tokens := security.NewGuestTokens("test-secret", time.Hour)
	m := NewMiddleware("svc", tokens, security.NewRateLimiter(1000, time.Minute), false)

	token, playerID, err := tokens.Issue()
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	handler := m.RequirePlayer(func(w http.ResponseWriter, r *http.Request) {
		player, ok := PlayerFromContext(r.Context())
		if !ok {
			t.Fatal("expected player in context")
		}
		if player.ID != playerID {
			t.Errorf("expected player %q, got %q", playerID, player.ID)
		}
		if !player.Guest {
			t.Error("expected guest player")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/challenge/1/attempts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	handler(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestRequirePlayerResolvesHeaderIdentity(t *testing.T) {
	m := testMiddleware("svc")
	handler := m.RequirePlayer(func(w http.ResponseWriter, r *http.Request) {
		player, _ := PlayerFromContext(r.Context())
		if player.ID != "ana" || player.Guest {
			t.Errorf("expected registered player ana, got %+v", player)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/challenge/1/attempts", nil)
	req.Header.Set("X-Player-ID", "ana")
	recorder := httptest.NewRecorder()
	handler(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestRequirePlayerRejectsAnonymous(t *testing.T) {
	m := testMiddleware("svc")
	handler := m.RequirePlayer(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without an identity")
	})

	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest("GET", "/api/challenge/1/attempts", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestRequirePlayerRejectsBadGuestToken(t *testing.T) {
	m := testMiddleware("svc")
	handler := m.RequirePlayer(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an invalid token")
	})

	req := httptest.NewRequest("GET", "/api/challenge/1/attempts", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	recorder := httptest.NewRecorder()
	handler(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestRateLimitRejectsAfterBudget(t *testing.T) {
	m := NewMiddleware("svc", security.NewGuestTokens("test-secret", time.Hour), security.NewRateLimiter(2, time.Minute), false)
	handler := m.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/guest", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, recorder.Code)
		}
	}

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/guest", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler(recorder, req)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", recorder.Code)
	}
}

func TestRateLimitIgnoresForwardingHeadersWithoutProxy(t *testing.T) {
	m := NewMiddleware("svc", security.NewGuestTokens("test-secret", time.Hour), security.NewRateLimiter(2, time.Minute), false)
	handler := m.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Rotating X-Forwarded-For must not buy a fresh budget: the direct
	// caller's address is what counts.
	for i := 0; i < 3; i++ {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/guest", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		handler(recorder, req)

		want := http.StatusOK
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if recorder.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, recorder.Code)
		}
	}
}
