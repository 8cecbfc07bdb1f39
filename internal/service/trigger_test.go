package service

import (
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sabeo/internal/models"
)

func testTrigger(schedules *memScheduleStore, challenges *memChallengeStore, notifier *Notifier, now time.Time) *Trigger {
	scheduler := NewScheduler(schedules, challenges, DefaultSchedulerConfig(), rand.New(rand.NewSource(1)))
	reveals := &memRevealStore{schedules: schedules, challenges: challenges}
	return NewTrigger(scheduler, reveals, notifier, fixedClock{now: now}, "Sabeo", "¡Hay un nuevo reto!")
}

func TestTryRevealPendingBeforeInstant(t *testing.T) {
	challenges := newMemChallengeStore(&models.Challenge{ID: 1, Word: "CASAS", CreatedAt: time.Now()})
	schedules := newMemScheduleStore()

	// Poll well before the reveal window opens.
	now := time.Date(2026, 3, 14, 5, 0, 0, 0, time.UTC)
	trigger := testTrigger(schedules, challenges, nil, now)

	result, err := trigger.TryRevealNow()
	require.NoError(t, err)
	assert.Equal(t, RevealPending, result.State)
	require.NotNil(t, result.ScheduledAt)

	// The pending poll must not start anything.
	stored, err := challenges.GetByID(1)
	require.NoError(t, err)
	assert.False(t, stored.Started())
}

func TestTryRevealNoChallenge(t *testing.T) {
	schedules := newMemScheduleStore()
	trigger := testTrigger(schedules, newMemChallengeStore(), nil, time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC))

	result, err := trigger.TryRevealNow()
	require.NoError(t, err)
	assert.Equal(t, RevealNoChallenge, result.State)
}

func TestTryRevealFiresExactlyOnce(t *testing.T) {
	challenges := newMemChallengeStore(&models.Challenge{ID: 5, Word: "CASAS", CreatedAt: time.Now()})
	schedules := newMemScheduleStore()

	// Past the window's end: due no matter which slot was drawn.
	now := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	trigger := testTrigger(schedules, challenges, nil, now)

	const callers = 12
	results := make([]*RevealResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = trigger.TryReveal(now)
		}(i)
	}
	wg.Wait()

	fired := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		switch results[i].State {
		case RevealFired:
			fired++
			assert.Equal(t, int64(5), results[i].ChallengeID)
		case RevealAlreadyFired:
		default:
			t.Fatalf("caller %d got unexpected state %q", i, results[i].State)
		}
	}
	assert.Equal(t, 1, fired, "exactly one caller must win the reveal")
	assert.Equal(t, 1, challenges.startedCalls, "challenge must be started exactly once")
}

func TestTryRevealRepeatAfterFired(t *testing.T) {
	challenges := newMemChallengeStore(&models.Challenge{ID: 5, Word: "CASAS", CreatedAt: time.Now()})
	schedules := newMemScheduleStore()
	now := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	trigger := testTrigger(schedules, challenges, nil, now)

	first, err := trigger.TryReveal(now)
	require.NoError(t, err)
	require.Equal(t, RevealFired, first.State)

	second, err := trigger.TryReveal(now.Add(10 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, RevealAlreadyFired, second.State)
	assert.Equal(t, int64(5), second.ChallengeID)
}

func TestTryRevealFansOutWithScheduleMessage(t *testing.T) {
	challenges := newMemChallengeStore(&models.Challenge{ID: 8, Word: "CASAS", CreatedAt: time.Now()})
	schedules := newMemScheduleStore()

	now := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	runAt := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	challengeID := int64(8)
	_, err := schedules.InsertIgnore(&models.ScheduleRecord{
		Day:            models.Day(now),
		ScheduledRunAt: &runAt,
		ChallengeID:    &challengeID,
		Message:        "Reto especial de hoy",
	})
	require.NoError(t, err)

	subs := newMemSubscriptionStore(
		models.Subscription{Player: "ana", Endpoint: "https://push/a"},
		models.Subscription{Player: "ben", Endpoint: "https://push/b"},
	)
	delivery := newRecordingDelivery()
	notifier := NewNotifier(subs, delivery, time.Second, "/icon-512x512.png")
	trigger := testTrigger(schedules, challenges, notifier, now)

	result, err := trigger.TryRevealNow()
	require.NoError(t, err)
	require.Equal(t, RevealFired, result.State)

	notifier.Wait()
	assert.Equal(t, 2, delivery.sendCount())

	var payload BroadcastRequest
	require.NoError(t, json.Unmarshal(delivery.sentTo("https://push/a"), &payload))
	assert.Equal(t, "Sabeo", payload.Title)
	assert.Equal(t, "Reto especial de hoy", payload.Body)
	assert.Equal(t, "/icon-512x512.png", payload.Icon)
}

func TestTryRevealStandsWhenChallengeAlreadyStarted(t *testing.T) {
	started := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	challenges := newMemChallengeStore(&models.Challenge{ID: 4, Word: "CASAS", CreatedAt: time.Now(), StartedAt: &started})
	schedules := newMemScheduleStore()

	now := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	runAt := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	challengeID := int64(4)
	_, err := schedules.InsertIgnore(&models.ScheduleRecord{
		Day:            models.Day(now),
		ScheduledRunAt: &runAt,
		ChallengeID:    &challengeID,
	})
	require.NoError(t, err)

	trigger := testTrigger(schedules, challenges, nil, now)
	result, err := trigger.TryRevealNow()
	require.NoError(t, err)
	assert.Equal(t, RevealAlreadyFired, result.State)
	assert.Equal(t, int64(4), result.ChallengeID)
}
