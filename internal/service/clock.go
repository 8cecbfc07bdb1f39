package service

import "time"

// Clock abstracts wall-clock time so the scheduling window math and the
// reveal transition can be tested with fixed instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the real wall clock in UTC.
func SystemClock() Clock { return systemClock{} }
