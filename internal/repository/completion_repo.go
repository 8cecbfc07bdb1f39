package repository

import (
	"sabeo/internal/database"
	"sabeo/internal/models"
)

// CompletionRepository records solved challenges, one row per (player, challenge)
type CompletionRepository struct {
	db *database.DB
}

// NewCompletionRepository creates a new completion repository
func NewCompletionRepository(db *database.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// Insert stores a completion. Returns false when the player already completed
// this challenge; the duplicate is detected through the conflict-ignore
// primitive instead of surfacing a driver-specific unique-violation error.
func (r *CompletionRepository) Insert(completion *models.Completion) (bool, error) {
	query := `
		INSERT INTO completions (player, challenge, completed_at, seconds)
		VALUES (?, ?, ?, ?)
	`

	return r.db.ExecInsertIgnore(
		query,
		"player, challenge",
		completion.Player,
		completion.ChallengeID,
		completion.CompletedAt.UTC(),
		completion.Seconds,
	)
}

// ByChallenge returns completions for one challenge ordered fastest first
func (r *CompletionRepository) ByChallenge(challengeID int64) ([]models.Completion, error) {
	query := `
		SELECT player, challenge, completed_at, seconds
		FROM completions
		WHERE challenge = ?
		ORDER BY seconds ASC, completed_at ASC
	`
	rows, err := r.db.Query(query, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []models.Completion
	for rows.Next() {
		var c models.Completion
		if err := rows.Scan(&c.Player, &c.ChallengeID, &c.CompletedAt, &c.Seconds); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// All returns every completion ordered by player then time, the shape the
// season aggregation walks.
func (r *CompletionRepository) All() ([]models.Completion, error) {
	query := `
		SELECT player, challenge, completed_at, seconds
		FROM completions
		ORDER BY player ASC, completed_at ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []models.Completion
	for rows.Next() {
		var c models.Completion
		if err := rows.Scan(&c.Player, &c.ChallengeID, &c.CompletedAt, &c.Seconds); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}
