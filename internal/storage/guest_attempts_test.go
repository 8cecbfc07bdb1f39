package storage

import (
	"sync"
	"testing"
)

func TestGuestAttemptStoreRoundTrip(t *testing.T) {
	store, err := NewGuestAttemptStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuestAttemptStore() error = %v", err)
	}

	attempts, err := store.List("guest-1", 7)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("fresh store should have no attempts, got %d", len(attempts))
	}

	if _, err := store.Append("guest-1", 7, "SALSA"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	updated, err := store.Append("guest-1", 7, "CASAS")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if len(updated) != 2 || updated[0] != "SALSA" || updated[1] != "CASAS" {
		t.Errorf("Append() = %v, want [SALSA CASAS]", updated)
	}

	// Other challenges and other guests stay independent.
	other, _ := store.List("guest-1", 8)
	if len(other) != 0 {
		t.Errorf("challenge 8 should be empty, got %v", other)
	}
	stranger, _ := store.List("guest-2", 7)
	if len(stranger) != 0 {
		t.Errorf("guest-2 should be empty, got %v", stranger)
	}
}

func TestGuestAttemptStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewGuestAttemptStore(dir)
	if err != nil {
		t.Fatalf("NewGuestAttemptStore() error = %v", err)
	}
	if _, err := store.Append("guest-1", 3, "MUNDO"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	reopened, err := NewGuestAttemptStore(dir)
	if err != nil {
		t.Fatalf("NewGuestAttemptStore() error = %v", err)
	}
	attempts, err := reopened.List("guest-1", 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(attempts) != 1 || attempts[0] != "MUNDO" {
		t.Errorf("List() after reopen = %v, want [MUNDO]", attempts)
	}
}

func TestGuestAttemptStoreConcurrentAppends(t *testing.T) {
	store, err := NewGuestAttemptStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuestAttemptStore() error = %v", err)
	}

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Append("guest-1", 5, "SALSA"); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}()
	}
	wg.Wait()

	attempts, err := store.List("guest-1", 5)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(attempts) != writers {
		t.Errorf("concurrent appends lost writes: got %d, want %d", len(attempts), writers)
	}
}
