package repository

import (
	"database/sql"
	"time"

	"sabeo/internal/database"
	"sabeo/internal/models"
)

// ChallengeRepository handles challenge database operations
type ChallengeRepository struct {
	db *database.DB
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(db *database.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create inserts a challenge with a NULL started_at. Used by the content
// pipeline and by tests; players never see the row until the reveal.
func (r *ChallengeRepository) Create(word, description string) (*models.Challenge, error) {
	query := `
		INSERT INTO challenges (word, description, created_at)
		VALUES (?, ?, ?)
	`

	id, err := r.db.ExecReturningID(query, word, description, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

// GetByID retrieves a challenge by ID
func (r *ChallengeRepository) GetByID(id int64) (*models.Challenge, error) {
	query := `
		SELECT id, word, description, created_at, started_at
		FROM challenges
		WHERE id = ?
	`
	return r.scanChallenge(r.db.QueryRow(query, id))
}

// Latest returns the most recently started challenge, ties broken by creation
// order. This is "today's challenge" for player-facing reads.
func (r *ChallengeRepository) Latest() (*models.Challenge, error) {
	query := `
		SELECT id, word, description, created_at, started_at
		FROM challenges
		WHERE started_at IS NOT NULL
		ORDER BY started_at DESC, created_at ASC
		LIMIT 1
	`
	return r.scanChallenge(r.db.QueryRow(query))
}

// OldestUnstarted returns the next challenge in FIFO order that has not been
// revealed yet, or nil when the queue is empty.
func (r *ChallengeRepository) OldestUnstarted() (*models.Challenge, error) {
	query := `
		SELECT id, word, description, created_at, started_at
		FROM challenges
		WHERE started_at IS NULL
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.scanChallenge(r.db.QueryRow(query))
}

// CountStarted returns how many challenges have been revealed so far
func (r *ChallengeRepository) CountStarted() (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM challenges WHERE started_at IS NOT NULL"
	err := r.db.QueryRow(query).Scan(&count)
	return count, err
}

func (r *ChallengeRepository) scanChallenge(row *sql.Row) (*models.Challenge, error) {
	challenge := &models.Challenge{}
	var description sql.NullString
	var startedAt sql.NullTime

	err := row.Scan(
		&challenge.ID,
		&challenge.Word,
		&description,
		&challenge.CreatedAt,
		&startedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if description.Valid {
		challenge.Description = description.String
	}
	if startedAt.Valid {
		challenge.StartedAt = &startedAt.Time
	}

	return challenge, nil
}
