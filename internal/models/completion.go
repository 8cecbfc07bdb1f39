package models

import "time"

// Completion records that a player solved a challenge. One row per
// (player, challenge); Seconds is the time between the reveal and the solve,
// used by the daily ranking and the fast bonus.
type Completion struct {
	Player      string    `json:"player"`
	ChallengeID int64     `json:"challengeId"`
	CompletedAt time.Time `json:"completedAt"`
	Seconds     int64     `json:"seconds"`
}

// SeasonRankingRow is one player's aggregate standing.
type SeasonRankingRow struct {
	Player        string `json:"player"`
	SeasonPoints  int    `json:"seasonPoints"`
	CurrentStreak int    `json:"currentStreak"`
	Completed     int    `json:"completed"`
}

// DailyRankingRow is one player's position for a single day's challenge.
type DailyRankingRow struct {
	Player  string `json:"player"`
	Seconds int64  `json:"seconds"`
}
