package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sabeo/internal/models"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type memChallengeStore struct {
	mu           sync.Mutex
	challenges   map[int64]*models.Challenge
	startedCalls int
}

func newMemChallengeStore(challenges ...*models.Challenge) *memChallengeStore {
	s := &memChallengeStore{challenges: make(map[int64]*models.Challenge)}
	for _, c := range challenges {
		copied := *c
		s.challenges[c.ID] = &copied
	}
	return s
}

func (s *memChallengeStore) GetByID(id int64) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *memChallengeStore) Latest() (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Challenge
	for _, c := range s.challenges {
		if !c.Started() {
			continue
		}
		if latest == nil || c.StartedAt.After(*latest.StartedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (s *memChallengeStore) OldestUnstarted() (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *models.Challenge
	for _, c := range s.challenges {
		if c.Started() {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	if oldest == nil {
		return nil, nil
	}
	copied := *oldest
	return &copied, nil
}

func (s *memChallengeStore) MarkStarted(id int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok || c.Started() {
		return false, nil
	}
	started := at
	c.StartedAt = &started
	s.startedCalls++
	return true, nil
}

type memScheduleStore struct {
	mu      sync.Mutex
	records map[string]*models.ScheduleRecord
}

func newMemScheduleStore() *memScheduleStore {
	return &memScheduleStore{records: make(map[string]*models.ScheduleRecord)}
}

func (s *memScheduleStore) GetByDay(day string) (*models.ScheduleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[day]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *memScheduleStore) InsertIgnore(record *models.ScheduleRecord) (*models.ScheduleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[record.Day]; ok {
		copied := *existing
		return &copied, nil
	}
	copied := *record
	s.records[record.Day] = &copied
	returned := copied
	return &returned, nil
}

func (s *memScheduleStore) MarkTriggered(day string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[day]
	if !ok || r.TriggeredAt != nil {
		return false, nil
	}
	triggered := at
	r.TriggeredAt = &triggered
	return true, nil
}

// memRevealStore couples the schedule CAS to the challenge CAS the way the
// relational store's transaction does.
type memRevealStore struct {
	schedules  *memScheduleStore
	challenges *memChallengeStore
}

func (s *memRevealStore) MarkTriggeredAndStart(day string, challengeID int64, at time.Time) (bool, bool, error) {
	won, err := s.schedules.MarkTriggered(day, at)
	if err != nil || !won {
		return false, false, err
	}
	started, err := s.challenges.MarkStarted(challengeID, at)
	if err != nil {
		return false, false, err
	}
	return true, started, nil
}

type memSubscriptionStore struct {
	mu   sync.Mutex
	subs []models.Subscription
}

func newMemSubscriptionStore(subs ...models.Subscription) *memSubscriptionStore {
	return &memSubscriptionStore{subs: subs}
}

func (s *memSubscriptionStore) All() ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Subscription, len(s.subs))
	copy(out, s.subs)
	return out, nil
}

func (s *memSubscriptionStore) ByPlayer(player string) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Subscription
	for _, sub := range s.subs {
		if sub.Player == player {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *memSubscriptionStore) DeleteByEndpoint(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.subs[:0]
	for _, sub := range s.subs {
		if sub.Endpoint != endpoint {
			kept = append(kept, sub)
		}
	}
	s.subs = kept
	return nil
}

func (s *memSubscriptionStore) endpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub.Endpoint)
	}
	sort.Strings(out)
	return out
}

// recordingDelivery captures every send and answers with a scripted error per
// endpoint.
type recordingDelivery struct {
	mu       sync.Mutex
	sent     map[string][]byte
	failWith map[string]error
}

func newRecordingDelivery() *recordingDelivery {
	return &recordingDelivery{
		sent:     make(map[string][]byte),
		failWith: make(map[string]error),
	}
}

func (d *recordingDelivery) Send(_ context.Context, sub models.Subscription, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent[sub.Endpoint] = append([]byte(nil), payload...)
	return d.failWith[sub.Endpoint]
}

func (d *recordingDelivery) sentTo(endpoint string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent[endpoint]
}

func (d *recordingDelivery) sendCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type memAttemptStore struct {
	mu       sync.Mutex
	attempts map[string][]string
	appends  int
}

func newMemAttemptStore() *memAttemptStore {
	return &memAttemptStore{attempts: make(map[string][]string)}
}

func attemptKey(player string, challengeID int64) string {
	return fmt.Sprintf("%s/%d", player, challengeID)
}

func (s *memAttemptStore) List(player string, challengeID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.attempts[attemptKey(player, challengeID)]
	out := make([]string, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *memAttemptStore) Append(player string, challengeID int64, guess string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey(player, challengeID)
	s.attempts[key] = append(s.attempts[key], guess)
	s.appends++
	out := make([]string, len(s.attempts[key]))
	copy(out, s.attempts[key])
	return out, nil
}

type memCompletionStore struct {
	mu          sync.Mutex
	completions map[string]models.Completion
}

func newMemCompletionStore() *memCompletionStore {
	return &memCompletionStore{completions: make(map[string]models.Completion)}
}

func (s *memCompletionStore) Insert(completion *models.Completion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey(completion.Player, completion.ChallengeID)
	if _, ok := s.completions[key]; ok {
		return false, nil
	}
	s.completions[key] = *completion
	return true, nil
}

func (s *memCompletionStore) ByChallenge(challengeID int64) ([]models.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Completion
	for _, c := range s.completions {
		if c.ChallengeID == challengeID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seconds < out[j].Seconds })
	return out, nil
}

func (s *memCompletionStore) All() ([]models.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Completion, 0, len(s.completions))
	for _, c := range s.completions {
		out = append(out, c)
	}
	return out, nil
}
