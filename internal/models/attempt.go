package models

import "time"

// AttemptRecord is a player's ordered guess history for one challenge. The
// sequence is append-only and capped at the board's row count.
type AttemptRecord struct {
	Player      string    `json:"player"`
	ChallengeID int64     `json:"challengeId"`
	Attempts    []string  `json:"attempts"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Player identifies who is playing. Guests get a generated id and their
// attempts live in the local guest store instead of the relational one.
type Player struct {
	ID    string
	Guest bool
}
