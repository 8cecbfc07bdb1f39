package repository

import (
	"database/sql"
	"time"

	"sabeo/internal/database"
	"sabeo/internal/models"
)

// ScheduleRepository handles the one-record-per-day reveal schedule
type ScheduleRepository struct {
	db *database.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// GetByDay retrieves the schedule record for a calendar day, or nil
func (r *ScheduleRepository) GetByDay(day string) (*models.ScheduleRecord, error) {
	query := `
		SELECT challenge_day, scheduled_run_at, triggered_at, challenge_id, message
		FROM daily_challenge_schedule
		WHERE challenge_day = ?
	`

	record := &models.ScheduleRecord{}
	var scheduledRunAt, triggeredAt sql.NullTime
	var challengeID sql.NullInt64
	var message sql.NullString

	err := r.db.QueryRow(query, day).Scan(
		&record.Day,
		&scheduledRunAt,
		&triggeredAt,
		&challengeID,
		&message,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if scheduledRunAt.Valid {
		record.ScheduledRunAt = &scheduledRunAt.Time
	}
	if triggeredAt.Valid {
		record.TriggeredAt = &triggeredAt.Time
	}
	if challengeID.Valid {
		record.ChallengeID = &challengeID.Int64
	}
	if message.Valid {
		record.Message = message.String
	}

	return record, nil
}

// InsertIgnore writes the day's record unless one already exists. Two
// concurrent callers for the same day converge on one row; the loser gets the
// winner's record back instead of a duplicate-key error.
func (r *ScheduleRepository) InsertIgnore(record *models.ScheduleRecord) (*models.ScheduleRecord, error) {
	query := `
		INSERT INTO daily_challenge_schedule (challenge_day, scheduled_run_at, triggered_at, challenge_id, message)
		VALUES (?, ?, ?, ?, ?)
	`

	var scheduledRunAt interface{}
	if record.ScheduledRunAt != nil {
		scheduledRunAt = record.ScheduledRunAt.UTC()
	}
	var challengeID interface{}
	if record.ChallengeID != nil {
		challengeID = *record.ChallengeID
	}
	var message interface{}
	if record.Message != "" {
		message = record.Message
	}

	_, err := r.db.ExecInsertIgnore(query, "challenge_day", record.Day, scheduledRunAt, nil, challengeID, message)
	if err != nil {
		return nil, err
	}

	// Re-read so both winner and loser observe the persisted record.
	return r.GetByDay(record.Day)
}

// MarkTriggeredAndStart sets triggered_at only if it is still NULL and flips
// the challenge's started_at with it, both inside one transaction: the
// compare-and-swap that makes the reveal exactly-once. A crash between the two
// updates rolls the whole reveal back, so the next poll retries it cleanly.
// triggered is false for every caller but the winner; started is false when
// the challenge had already been started through some other path.
func (r *ScheduleRepository) MarkTriggeredAndStart(day string, challengeID int64, at time.Time) (triggered, started bool, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, false, err
	}
	defer tx.Rollback()

	triggered, err = casTriggered(tx, day, at)
	if err != nil || !triggered {
		return false, false, err
	}

	started, err = casStarted(tx, challengeID, at)
	if err != nil {
		return false, false, err
	}

	if err := tx.Commit(); err != nil {
		return false, false, err
	}
	return true, started, nil
}

func casTriggered(q database.DBTX, day string, at time.Time) (bool, error) {
	query := `
		UPDATE daily_challenge_schedule
		SET triggered_at = ?
		WHERE challenge_day = ? AND triggered_at IS NULL
	`

	result, err := q.Exec(query, at.UTC(), day)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func casStarted(q database.DBTX, challengeID int64, at time.Time) (bool, error) {
	query := `
		UPDATE challenges
		SET started_at = ?
		WHERE id = ? AND started_at IS NULL
	`

	result, err := q.Exec(query, at.UTC(), challengeID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
