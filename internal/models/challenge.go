package models

import "time"

// Challenge is one daily word challenge. Rows are created by the content
// pipeline with a NULL started_at; the trigger sets started_at exactly once
// when the challenge is revealed to players.
type Challenge struct {
	ID          int64      `json:"id"`
	Word        string     `json:"word"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
}

// Started reports whether the challenge has been revealed.
func (c *Challenge) Started() bool {
	return c.StartedAt != nil
}
