package service

import (
	"fmt"
	"sync"

	"sabeo/internal/game"
	"sabeo/internal/models"
)

// AttemptStore holds a player's ordered guesses per challenge. Two
// implementations exist: the relational store for registered players and the
// local file store for guests. The service picks one per call from the
// player's kind; nothing downstream branches on it again.
type AttemptStore interface {
	List(player string, challengeID int64) ([]string, error)
	Append(player string, challengeID int64, guess string) ([]string, error)
}

// BoardState is what a player sees for one challenge: their attempts, the
// per-attempt colors, the aggregated keyboard, and whether the board is done.
// Colors are always recomputed from the attempts and the secret, never stored.
type BoardState struct {
	ChallengeID int64             `json:"challengeId"`
	Attempts    []string          `json:"attempts"`
	Colors      [][]game.Color    `json:"colors"`
	Keyboard    map[string]string `json:"keyboard"`
	Finished    bool              `json:"finished"`
	Won         bool              `json:"won"`
}

// AttemptService validates, persists and scores guesses.
type AttemptService struct {
	registered AttemptStore
	guests     AttemptStore
	challenges ChallengeStore
	maxRows    int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAttemptService creates an attempt service.
func NewAttemptService(registered, guests AttemptStore, challenges ChallengeStore, maxRows int) *AttemptService {
	if maxRows <= 0 {
		maxRows = game.MaxRows
	}
	return &AttemptService{
		registered: registered,
		guests:     guests,
		challenges: challenges,
		maxRows:    maxRows,
		locks:      make(map[string]*sync.Mutex),
	}
}

// lock serializes Submit per (player, challenge) so the finished-board check
// and the append happen as one step. Without it two concurrent submits can
// both read a near-full board and push it past maxRows.
func (s *AttemptService) lock(player models.Player, challengeID int64) func() {
	key := fmt.Sprintf("%t/%s/%d", player.Guest, player.ID, challengeID)

	s.mu.Lock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	s.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (s *AttemptService) storeFor(player models.Player) AttemptStore {
	if player.Guest {
		return s.guests
	}
	return s.registered
}

// Board returns the player's current board for a challenge.
func (s *AttemptService) Board(player models.Player, challengeID int64) (*BoardState, error) {
	challenge, err := s.startedChallenge(challengeID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.storeFor(player).List(player.ID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	return s.board(challenge, attempts), nil
}

// Submit validates and appends one guess, returning the updated board.
// Attempts on a finished board are rejected.
func (s *AttemptService) Submit(player models.Player, challengeID int64, attempt string) (*BoardState, error) {
	challenge, err := s.startedChallenge(challengeID)
	if err != nil {
		return nil, err
	}

	attempt = game.Normalize(attempt)
	if err := game.ValidateAttempt(challenge.Word, attempt); err != nil {
		return nil, err
	}

	unlock := s.lock(player, challengeID)
	defer unlock()

	current, err := s.storeFor(player).List(player.ID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}
	if game.Finished(challenge.Word, current, s.maxRows) {
		return nil, ErrChallengeFinished
	}

	updated, err := s.storeFor(player).Append(player.ID, challengeID, attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to save attempt: %w", err)
	}

	return s.board(challenge, updated), nil
}

func (s *AttemptService) startedChallenge(challengeID int64) (*models.Challenge, error) {
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
	return challenge, nil
}

func (s *AttemptService) board(challenge *models.Challenge, attempts []string) *BoardState {
	keyboard := make(map[string]string)
	for letter, color := range game.KeyboardColors(challenge.Word, attempts) {
		keyboard[string(letter)] = string(color)
	}

	return &BoardState{
		ChallengeID: challenge.ID,
		Attempts:    attempts,
		Colors:      game.EvaluateAll(challenge.Word, attempts),
		Keyboard:    keyboard,
		Finished:    game.Finished(challenge.Word, attempts, s.maxRows),
		Won:         game.Won(challenge.Word, attempts),
	}
}
