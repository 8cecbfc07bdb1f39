package models

import "time"

// ScheduleRecord is the one-per-day decision of when the daily challenge is
// revealed. A day moves through three states and never regresses:
//
//	no-challenge: ScheduledRunAt nil, nothing to reveal that day
//	pending:      ScheduledRunAt set, TriggeredAt nil
//	fired:        TriggeredAt set
type ScheduleRecord struct {
	Day            string     `json:"scheduleDay"`
	ScheduledRunAt *time.Time `json:"scheduledAt,omitempty"`
	TriggeredAt    *time.Time `json:"triggeredAt,omitempty"`
	ChallengeID    *int64     `json:"challengeId,omitempty"`
	Message        string     `json:"message,omitempty"`
}

// DayFormat is the calendar-day key layout, UTC date only.
const DayFormat = "2006-01-02"

// Day returns the calendar-day key for an instant.
func Day(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// Pending reports whether the record has a reveal scheduled that has not fired.
func (s *ScheduleRecord) Pending() bool {
	return s.ScheduledRunAt != nil && s.TriggeredAt == nil
}

// Fired reports whether the reveal already happened.
func (s *ScheduleRecord) Fired() bool {
	return s.TriggeredAt != nil
}

// NoChallenge reports whether the day was recorded as having nothing to reveal.
func (s *ScheduleRecord) NoChallenge() bool {
	return s.ScheduledRunAt == nil
}
