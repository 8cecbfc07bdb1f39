package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sabeo/internal/database"
)

// AttemptRepository persists a player's guess history per challenge as a whole
// JSON sequence. Appends are read-modify-write, serialized per
// (player, challenge) key so two concurrent appends never lose one.
type AttemptRepository struct {
	db    *database.DB
	locks keyedLocks
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// List returns the ordered attempts for a (player, challenge) pair
func (r *AttemptRepository) List(player string, challengeID int64) ([]string, error) {
	query := `
		SELECT attempts_json
		FROM attempts
		WHERE player = ? AND challenge = ?
	`

	var raw string
	err := r.db.QueryRow(query, player, challengeID).Scan(&raw)
	if err == sql.ErrNoRows {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	return decodeAttempts(raw)
}

// Append adds one guess to the sequence and returns the updated sequence.
func (r *AttemptRepository) Append(player string, challengeID int64, guess string) ([]string, error) {
	unlock := r.locks.lock(fmt.Sprintf("%s/%d", player, challengeID))
	defer unlock()

	current, err := r.List(player, challengeID)
	if err != nil {
		return nil, err
	}

	updated := append(current, guess)
	raw, err := json.Marshal(updated)
	if err != nil {
		return nil, err
	}

	// Row may not exist yet; try the conflict-free insert first, then update.
	inserted, err := r.db.ExecInsertIgnore(
		"INSERT INTO attempts (player, challenge, attempts_json, updated_at) VALUES (?, ?, ?, ?)",
		"player, challenge",
		player, challengeID, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}

	if !inserted {
		query := `
			UPDATE attempts
			SET attempts_json = ?, updated_at = ?
			WHERE player = ? AND challenge = ?
		`
		if _, err := r.db.Exec(query, string(raw), time.Now().UTC(), player, challengeID); err != nil {
			return nil, err
		}
	}

	return updated, nil
}

func decodeAttempts(raw string) ([]string, error) {
	var attempts []string
	if err := json.Unmarshal([]byte(raw), &attempts); err != nil {
		return nil, fmt.Errorf("corrupt attempts sequence: %w", err)
	}
	if attempts == nil {
		attempts = []string{}
	}
	return attempts, nil
}

// keyedLocks hands out one mutex per key. Different players and challenges
// proceed in parallel; the same pair is single-writer.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
