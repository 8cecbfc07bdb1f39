package service

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"sabeo/internal/models"
)

// ChallengeStore is the challenge persistence contract the engine depends on.
type ChallengeStore interface {
	GetByID(id int64) (*models.Challenge, error)
	Latest() (*models.Challenge, error)
	OldestUnstarted() (*models.Challenge, error)
}

// ScheduleStore is the per-day schedule persistence contract.
type ScheduleStore interface {
	GetByDay(day string) (*models.ScheduleRecord, error)
	InsertIgnore(record *models.ScheduleRecord) (*models.ScheduleRecord, error)
}

// SchedulerConfig describes the reveal window. The random instant is drawn
// from discrete slots across [StartHourUTC, StartHourUTC+WindowHours], both
// ends inclusive: the defaults give 49 ten-minute slots starting 13:00 UTC
// (08:00 Bogotá).
type SchedulerConfig struct {
	StartHourUTC int
	WindowHours  int
	SlotMinutes  int
}

// DefaultSchedulerConfig matches the production window.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{StartHourUTC: 13, WindowHours: 8, SlotMinutes: 10}
}

func (c SchedulerConfig) slotCount() int {
	if c.SlotMinutes <= 0 {
		return 1
	}
	return c.WindowHours*60/c.SlotMinutes + 1
}

// Scheduler decides, once per calendar day, when the daily challenge is
// revealed, and persists that decision idempotently.
type Scheduler struct {
	schedules  ScheduleStore
	challenges ChallengeStore
	cfg        SchedulerConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScheduler creates a scheduler. The rand source does not need to be
// cryptographically secure, only independent per day; tests inject a seeded one.
func NewScheduler(schedules ScheduleStore, challenges ChallengeStore, cfg SchedulerConfig, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		schedules:  schedules,
		challenges: challenges,
		cfg:        cfg,
		rng:        rng,
	}
}

// EnsureScheduleForDay returns the day's schedule record, creating it on first
// call. A non-empty message replaces the default notification body when the
// reveal fires; it only sticks on the call that creates the record. The
// decision is made once: later calls return the stored record unchanged,
// including the no-challenge state even if a challenge shows up later that
// day. Concurrent first calls converge on one record through the store's
// conflict-ignore insert.
func (s *Scheduler) EnsureScheduleForDay(day string, nowUTC time.Time, message string) (*models.ScheduleRecord, error) {
	existing, err := s.schedules.GetByDay(day)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule for %s: %w", day, err)
	}
	if existing != nil {
		return existing, nil
	}

	challenge, err := s.challenges.OldestUnstarted()
	if err != nil {
		return nil, fmt.Errorf("failed to find pending challenge: %w", err)
	}

	record := &models.ScheduleRecord{Day: day, Message: message}
	if challenge != nil {
		runAt := s.randomRunAt(nowUTC)
		record.ScheduledRunAt = &runAt
		record.ChallengeID = &challenge.ID
	}

	stored, err := s.schedules.InsertIgnore(record)
	if err != nil {
		return nil, fmt.Errorf("failed to persist schedule for %s: %w", day, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("schedule for %s vanished after insert", day)
	}
	return stored, nil
}

// randomRunAt draws a uniform slot inside the day's reveal window.
func (s *Scheduler) randomRunAt(nowUTC time.Time) time.Time {
	s.mu.Lock()
	slot := s.rng.Intn(s.cfg.slotCount())
	s.mu.Unlock()

	year, month, day := nowUTC.UTC().Date()
	windowStart := time.Date(year, month, day, s.cfg.StartHourUTC, 0, 0, 0, time.UTC)
	return windowStart.Add(time.Duration(slot*s.cfg.SlotMinutes) * time.Minute)
}
