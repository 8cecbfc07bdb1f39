package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"sabeo/internal/models"
)

// RevealState is the outcome of one trigger poll.
type RevealState string

const (
	// RevealFired means this caller won the transition: the challenge is now
	// started and the fan-out has been handed off.
	RevealFired RevealState = "fired"
	// RevealPending means the day's instant has not arrived yet.
	RevealPending RevealState = "pending"
	// RevealNoChallenge means the day was recorded as having nothing to reveal.
	RevealNoChallenge RevealState = "no_challenge"
	// RevealAlreadyFired means another caller performed the transition first,
	// today or on an earlier poll.
	RevealAlreadyFired RevealState = "already_fired"
)

// RevealResult reports what a TryReveal call observed.
type RevealResult struct {
	State       RevealState `json:"state"`
	ChallengeID int64       `json:"challengeId,omitempty"`
	ScheduledAt *time.Time  `json:"scheduledAt,omitempty"`
}

// RevealStore performs the reveal transition itself: flip the day's
// triggered_at and the challenge's started_at together. The relational store
// runs both updates in one transaction so a crash cannot leave a fired
// schedule pointing at a challenge that never started.
type RevealStore interface {
	MarkTriggeredAndStart(day string, challengeID int64, at time.Time) (triggered, started bool, err error)
}

// Trigger performs the exactly-once reveal transition. It is driven by an
// external at-least-once poller, so every path through TryReveal must be safe
// to repeat and safe to race.
type Trigger struct {
	scheduler *Scheduler
	reveals   RevealStore
	notifier  *Notifier
	clock     Clock

	notifyTitle string
	notifyBody  string
}

// NewTrigger creates a trigger. The notifier may be nil in tests that only
// exercise the state transition.
func NewTrigger(scheduler *Scheduler, reveals RevealStore, notifier *Notifier, clock Clock, notifyTitle, notifyBody string) *Trigger {
	if clock == nil {
		clock = SystemClock()
	}
	return &Trigger{
		scheduler:   scheduler,
		reveals:     reveals,
		notifier:    notifier,
		clock:       clock,
		notifyTitle: notifyTitle,
		notifyBody:  notifyBody,
	}
}

// TryReveal checks whether today's reveal is due and, if so, performs it.
// The schedule row's triggered_at is the compare-and-swap that elects a single
// winner among concurrent callers; the winner flips the challenge's started_at
// in the same store transaction. The notification fan-out runs detached from
// the caller but tracked by the notifier, so shutdown waits for it.
func (t *Trigger) TryReveal(nowUTC time.Time) (*RevealResult, error) {
	day := models.Day(nowUTC)

	record, err := t.scheduler.EnsureScheduleForDay(day, nowUTC, "")
	if err != nil {
		return nil, err
	}

	switch {
	case record.NoChallenge():
		return &RevealResult{State: RevealNoChallenge}, nil
	case record.Fired():
		return t.alreadyFired(record), nil
	case nowUTC.Before(*record.ScheduledRunAt):
		return &RevealResult{
			State:       RevealPending,
			ScheduledAt: record.ScheduledRunAt,
		}, nil
	}

	// Due. Exactly one caller flips triggered_at from NULL and starts the
	// challenge with it.
	challengeID := *record.ChallengeID
	won, started, err := t.reveals.MarkTriggeredAndStart(day, challengeID, nowUTC)
	if err != nil {
		return nil, fmt.Errorf("failed to fire reveal for %s: %w", day, err)
	}
	if !won {
		return t.alreadyFired(record), nil
	}
	if !started {
		// The schedule CAS was won but the challenge was already started,
		// e.g. by a manual send. The reveal stands; just don't notify twice.
		log.Printf("Challenge %d was already started when schedule %s fired", challengeID, day)
		return t.alreadyFired(record), nil
	}

	log.Printf("Challenge %d revealed for %s", challengeID, day)

	if t.notifier != nil {
		title, body := t.notifyTitle, t.notifyBody
		if record.Message != "" {
			body = record.Message
		}
		t.notifier.Go(func(ctx context.Context) {
			report, err := t.notifier.Broadcast(ctx, BroadcastRequest{Title: title, Body: body})
			if err != nil {
				log.Printf("Reveal fan-out for challenge %d failed: %v", challengeID, err)
				return
			}
			log.Printf("Reveal fan-out for challenge %d: %s", challengeID, report)
		})
	}

	return &RevealResult{State: RevealFired, ChallengeID: challengeID}, nil
}

// TryRevealNow is TryReveal at the injected clock's current instant.
func (t *Trigger) TryRevealNow() (*RevealResult, error) {
	return t.TryReveal(t.clock.Now())
}

func (t *Trigger) alreadyFired(record *models.ScheduleRecord) *RevealResult {
	result := &RevealResult{State: RevealAlreadyFired, ScheduledAt: record.ScheduledRunAt}
	if record.ChallengeID != nil {
		result.ChallengeID = *record.ChallengeID
	}
	return result
}
