package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// GuestAttemptStore is the local durable attempt store for anonymous players.
// One JSON file per guest, attempts keyed by challenge id, mirroring the
// localStorage layout a guest device would keep ("guest-attempts-<challenge>").
// It satisfies the same capability as the relational attempt store, so callers
// pick one per session instead of branching on an is-guest flag.
type GuestAttemptStore struct {
	dir   string
	locks map[string]*sync.Mutex
	mu    sync.Mutex
}

// NewGuestAttemptStore creates a store rooted at dir, creating it if needed.
func NewGuestAttemptStore(dir string) (*GuestAttemptStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create guest data dir: %w", err)
	}
	return &GuestAttemptStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

type guestFile struct {
	Attempts map[string][]string `json:"attempts"`
}

// List returns the ordered attempts a guest has made for a challenge.
func (s *GuestAttemptStore) List(player string, challengeID int64) ([]string, error) {
	unlock := s.lock(player)
	defer unlock()

	file, err := s.read(player)
	if err != nil {
		return nil, err
	}

	attempts := file.Attempts[challengeKey(challengeID)]
	if attempts == nil {
		attempts = []string{}
	}
	return attempts, nil
}

// Append adds one guess and rewrites the guest's file. Serialized per guest;
// different guests proceed in parallel.
func (s *GuestAttemptStore) Append(player string, challengeID int64, guess string) ([]string, error) {
	unlock := s.lock(player)
	defer unlock()

	file, err := s.read(player)
	if err != nil {
		return nil, err
	}

	key := challengeKey(challengeID)
	updated := append(file.Attempts[key], guess)
	file.Attempts[key] = updated

	if err := s.write(player, file); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *GuestAttemptStore) pathFor(player string) string {
	return filepath.Join(s.dir, player+".json")
}

func (s *GuestAttemptStore) read(player string) (*guestFile, error) {
	data, err := os.ReadFile(s.pathFor(player))
	if os.IsNotExist(err) {
		return &guestFile{Attempts: make(map[string][]string)}, nil
	}
	if err != nil {
		return nil, err
	}

	var file guestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("corrupt guest attempts file for %s: %w", player, err)
	}
	if file.Attempts == nil {
		file.Attempts = make(map[string][]string)
	}
	return &file, nil
}

func (s *GuestAttemptStore) write(player string, file *guestFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename keeps the file whole if the process dies mid-write.
	tmp := s.pathFor(player) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.pathFor(player))
}

func (s *GuestAttemptStore) lock(player string) func() {
	s.mu.Lock()
	m, ok := s.locks[player]
	if !ok {
		m = &sync.Mutex{}
		s.locks[player] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func challengeKey(challengeID int64) string {
	return fmt.Sprintf("%d", challengeID)
}
