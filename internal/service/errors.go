package service

import "errors"

// Component-boundary errors. Repository and transport failures are translated
// into one of these before they cross a service boundary; handlers map them to
// status codes without inspecting driver errors.
var (
	// ErrNotFound means there is nothing to act on: no started challenge for
	// player reads, or no unstarted challenge left for the scheduler.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCompleted means the player already recorded a completion for
	// this challenge.
	ErrAlreadyCompleted = errors.New("challenge already completed")

	// ErrChallengeFinished means the board accepts no more attempts: the word
	// was found or the rows are used up.
	ErrChallengeFinished = errors.New("challenge already finished")

	// ErrChallengeNotStarted means the challenge exists but has not been
	// revealed, so it accepts no attempts or completions yet.
	ErrChallengeNotStarted = errors.New("challenge not started")
)
