package handlers

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"sabeo/internal/models"
	"sabeo/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const PlayerContextKey ContextKey = "player"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	serviceToken string
	guestTokens  *security.GuestTokens
	limiter      *security.RateLimiter
	trustProxy   bool
}

// NewMiddleware creates a new middleware instance. trustProxy declares a
// reverse proxy in front of the server, which makes forwarding headers
// trustworthy for rate-limit keying.
func NewMiddleware(serviceToken string, guestTokens *security.GuestTokens, limiter *security.RateLimiter, trustProxy bool) *Middleware {
	return &Middleware{
		serviceToken: serviceToken,
		guestTokens:  guestTokens,
		limiter:      limiter,
		trustProxy:   trustProxy,
	}
}

// RequireService guards the orchestration routes with the shared service
// token. The compare is constant time so the token can't be probed.
func (m *Middleware) RequireService(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if m.serviceToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(m.serviceToken)) != 1 {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "", nil)
			return
		}
		next(w, r)
	}
}

// RequirePlayer resolves the caller's player identity: a guest JWT in the
// Authorization header, or a registered player id in X-Player-ID. Requests
// with neither are rejected.
func (m *Middleware) RequirePlayer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var player models.Player

		if token := bearerToken(r); token != "" {
			playerID, err := m.guestTokens.Verify(token)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid guest token", "", nil)
				return
			}
			player = models.Player{ID: playerID, Guest: true}
		} else if playerID := r.Header.Get("X-Player-ID"); playerID != "" {
			player = models.Player{ID: playerID}
		} else {
			respondWithError(w, http.StatusUnauthorized, "Player identity required", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), PlayerContextKey, player)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit rejects callers that exceed the per-identity budget. Keyed by
// player when one is resolved, by client IP otherwise.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := security.ClientIP(r, m.trustProxy)
		if player, ok := PlayerFromContext(r.Context()); ok {
			key = player.ID
		}
		if !m.limiter.Allow(key) {
			respondWithError(w, http.StatusTooManyRequests, "Too many requests", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// PlayerFromContext retrieves the resolved player from the request context
func PlayerFromContext(ctx context.Context) (models.Player, bool) {
	player, ok := ctx.Value(PlayerContextKey).(models.Player)
	return player, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
