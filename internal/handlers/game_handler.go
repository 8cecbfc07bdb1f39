package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"sabeo/internal/game"
	"sabeo/internal/models"
	"sabeo/internal/security"
	"sabeo/internal/service"
)

// ChallengeDirectory is the read side of the challenge catalog the player
// surface needs.
type ChallengeDirectory interface {
	Latest() (*models.Challenge, error)
	CountStarted() (int, error)
}

// GameHandler serves the player-facing surface: the current challenge, guess
// boards, completions and rankings.
type GameHandler struct {
	challenges  ChallengeDirectory
	attempts    *service.AttemptService
	ranking     *service.RankingService
	guestTokens *security.GuestTokens
}

// NewGameHandler creates a new game handler
func NewGameHandler(challenges ChallengeDirectory, attempts *service.AttemptService, ranking *service.RankingService, guestTokens *security.GuestTokens) *GameHandler {
	return &GameHandler{
		challenges:  challenges,
		attempts:    attempts,
		ranking:     ranking,
		guestTokens: guestTokens,
	}
}

// LatestChallenge handles GET /api/challenge/latest, the most recently
// revealed challenge.
func (h *GameHandler) LatestChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.challenges.Latest()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load challenge", "Latest challenge lookup failed", err)
		return
	}
	if challenge == nil {
		respondWithError(w, http.StatusNotFound, "No active challenge", "", nil)
		return
	}

	// The challenge number shown in the UI is its position in the reveal
	// history.
	number, err := h.challenges.CountStarted()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load challenge", "Challenge count failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"challenge": challenge,
		"number":    number,
	})
}

// CreateGuest handles POST /api/guest, minting an anonymous player identity.
func (h *GameHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	token, playerID, err := h.guestTokens.Issue()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create guest", "Guest token issue failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"playerId": playerID,
		"token":    token,
	})
}

// GetBoard handles GET /api/challenge/{id}/attempts.
func (h *GameHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	player, ok := PlayerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Player identity required", "", nil)
		return
	}
	challengeID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id", "", nil)
		return
	}

	board, err := h.attempts.Board(player, challengeID)
	if err != nil {
		respondBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

type attemptRequest struct {
	Attempt string `json:"attempt"`
}

// SubmitAttempt handles POST /api/challenge/{id}/attempts.
func (h *GameHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	player, ok := PlayerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Player identity required", "", nil)
		return
	}
	challengeID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id", "", nil)
		return
	}

	var req attemptRequest
	if err := decodeJSON(r, &req); err != nil || req.Attempt == "" {
		respondWithError(w, http.StatusBadRequest, "Attempt is required", "", nil)
		return
	}

	board, err := h.attempts.Submit(player, challengeID, req.Attempt)
	if err != nil {
		respondBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Complete handles POST /api/challenge/{id}/complete.
func (h *GameHandler) Complete(w http.ResponseWriter, r *http.Request) {
	player, ok := PlayerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Player identity required", "", nil)
		return
	}
	challengeID, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id", "", nil)
		return
	}

	completion, err := h.ranking.RecordCompletion(player.ID, challengeID)
	switch {
	case errors.Is(err, service.ErrAlreadyCompleted):
		respondWithError(w, http.StatusConflict, "Challenge already completed", "", nil)
		return
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Challenge not found", "", nil)
		return
	case errors.Is(err, service.ErrChallengeNotStarted):
		respondWithError(w, http.StatusConflict, "Challenge not started", "", nil)
		return
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, "Failed to record completion", "Completion failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, completion)
}

// SeasonRanking handles GET /api/ranking.
func (h *GameHandler) SeasonRanking(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit", "", nil)
			return
		}
		limit = parsed
	}

	rows, err := h.ranking.SeasonRanking(limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load ranking", "Season ranking failed", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// DailyRanking handles GET /api/ranking/daily. Defaults to the latest
// revealed challenge; ?challengeId= selects an earlier day.
func (h *GameHandler) DailyRanking(w http.ResponseWriter, r *http.Request) {
	var challengeID int64
	if raw := r.URL.Query().Get("challengeId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid challenge id", "", nil)
			return
		}
		challengeID = parsed
	} else {
		latest, err := h.challenges.Latest()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to load challenge", "Latest challenge lookup failed", err)
			return
		}
		if latest == nil {
			respondWithError(w, http.StatusNotFound, "No active challenge", "", nil)
			return
		}
		challengeID = latest.ID
	}

	rows, err := h.ranking.DailyRanking(challengeID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load ranking", "Daily ranking failed", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func respondBoardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Challenge not found", "", nil)
	case errors.Is(err, service.ErrChallengeNotStarted):
		respondWithError(w, http.StatusConflict, "Challenge not started", "", nil)
	case errors.Is(err, service.ErrChallengeFinished):
		respondWithError(w, http.StatusConflict, "Challenge already finished", "", nil)
	case errors.Is(err, game.ErrLengthMismatch):
		respondWithError(w, http.StatusUnprocessableEntity, "Attempt has the wrong length", "", nil)
	case errors.Is(err, game.ErrInvalidAttempt):
		respondWithError(w, http.StatusUnprocessableEntity, "Attempt must be letters only", "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, "Failed to process attempt", "Attempt failed", err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
