package service

import (
	"fmt"
	"sort"
	"time"

	"sabeo/internal/models"
)

// CompletionStore persists solved challenges, one row per (player, challenge).
type CompletionStore interface {
	Insert(completion *models.Completion) (bool, error)
	ByChallenge(challengeID int64) ([]models.Completion, error)
	All() ([]models.Completion, error)
}

// Season scoring. Every completion is worth basePoints; solving within
// fastBonusWindow of the reveal adds fastBonusPoints.
const (
	basePoints      = 10
	fastBonusPoints = 5
	fastBonusWindow = 10 * time.Minute
)

// RankingService records completions and computes the season and daily
// standings. Aggregation happens here over completion rows; the store only
// persists them.
type RankingService struct {
	completions CompletionStore
	challenges  ChallengeStore
	clock       Clock
}

// NewRankingService creates a ranking service.
func NewRankingService(completions CompletionStore, challenges ChallengeStore, clock Clock) *RankingService {
	if clock == nil {
		clock = SystemClock()
	}
	return &RankingService{
		completions: completions,
		challenges:  challenges,
		clock:       clock,
	}
}

// RecordCompletion stores that a player solved a challenge, with the seconds
// elapsed since the reveal. A second completion for the same pair returns
// ErrAlreadyCompleted.
func (s *RankingService) RecordCompletion(player string, challengeID int64) (*models.Completion, error) {
	challenge, err := s.challenges.GetByID(challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge %d: %w", challengeID, err)
	}
	if challenge == nil {
		return nil, ErrNotFound
	}
	if !challenge.Started() {
		return nil, ErrChallengeNotStarted
	}

	now := s.clock.Now()
	seconds := int64(now.Sub(*challenge.StartedAt) / time.Second)
	if seconds < 0 {
		seconds = 0
	}

	completion := &models.Completion{
		Player:      player,
		ChallengeID: challengeID,
		CompletedAt: now,
		Seconds:     seconds,
	}

	inserted, err := s.completions.Insert(completion)
	if err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}
	if !inserted {
		return nil, ErrAlreadyCompleted
	}
	return completion, nil
}

// SeasonRanking aggregates per-player points and streaks over every
// completion, best score first. limit <= 0 returns everyone.
func (s *RankingService) SeasonRanking(limit int) ([]models.SeasonRankingRow, error) {
	completions, err := s.completions.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load completions: %w", err)
	}

	byPlayer := make(map[string][]models.Completion)
	for _, c := range completions {
		byPlayer[c.Player] = append(byPlayer[c.Player], c)
	}

	rows := make([]models.SeasonRankingRow, 0, len(byPlayer))
	for player, list := range byPlayer {
		rows = append(rows, models.SeasonRankingRow{
			Player:        player,
			SeasonPoints:  seasonPoints(list),
			CurrentStreak: currentStreak(list),
			Completed:     len(list),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SeasonPoints != rows[j].SeasonPoints {
			return rows[i].SeasonPoints > rows[j].SeasonPoints
		}
		if rows[i].CurrentStreak != rows[j].CurrentStreak {
			return rows[i].CurrentStreak > rows[j].CurrentStreak
		}
		return rows[i].Player < rows[j].Player
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// DailyRanking lists who solved a challenge, fastest first.
func (s *RankingService) DailyRanking(challengeID int64) ([]models.DailyRankingRow, error) {
	completions, err := s.completions.ByChallenge(challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completions: %w", err)
	}

	rows := make([]models.DailyRankingRow, 0, len(completions))
	for _, c := range completions {
		rows = append(rows, models.DailyRankingRow{Player: c.Player, Seconds: c.Seconds})
	}
	return rows, nil
}

func seasonPoints(completions []models.Completion) int {
	points := 0
	for _, c := range completions {
		points += basePoints
		if time.Duration(c.Seconds)*time.Second <= fastBonusWindow {
			points += fastBonusPoints
		}
	}
	return points
}

// currentStreak counts consecutive calendar days with a completion, walking
// back from the player's most recent one.
func currentStreak(completions []models.Completion) int {
	if len(completions) == 0 {
		return 0
	}

	days := make(map[string]bool, len(completions))
	var latest time.Time
	for _, c := range completions {
		days[models.Day(c.CompletedAt)] = true
		if c.CompletedAt.After(latest) {
			latest = c.CompletedAt
		}
	}

	streak := 0
	for day := latest; days[models.Day(day)]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}
