package handlers

import (
	"errors"
	"io"
	"net/http"

	"sabeo/internal/game"
	"sabeo/internal/models"
	"sabeo/internal/repository"
	"sabeo/internal/service"
)

// OrchestrationHandler exposes the scheduling and reveal machinery to the
// external poller, plus the content-pipeline route that queues challenges.
// Every route here is service-token guarded and safe to call repeatedly.
type OrchestrationHandler struct {
	scheduler  *service.Scheduler
	trigger    *service.Trigger
	notifier   *service.Notifier
	challenges *repository.ChallengeRepository
	clock      service.Clock
}

// NewOrchestrationHandler creates a new orchestration handler
func NewOrchestrationHandler(scheduler *service.Scheduler, trigger *service.Trigger, notifier *service.Notifier, challenges *repository.ChallengeRepository, clock service.Clock) *OrchestrationHandler {
	if clock == nil {
		clock = service.SystemClock()
	}
	return &OrchestrationHandler{
		scheduler:  scheduler,
		trigger:    trigger,
		notifier:   notifier,
		challenges: challenges,
		clock:      clock,
	}
}

type createChallengeRequest struct {
	Word        string `json:"word"`
	Description string `json:"description"`
}

// CreateChallenge handles POST /api/challenge, queueing a word for a future
// day. The scheduler picks queued challenges oldest first.
func (h *OrchestrationHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req createChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}

	word := game.Normalize(req.Word)
	if err := game.ValidateWord(word); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "Word must be letters only", "", nil)
		return
	}

	challenge, err := h.challenges.Create(word, req.Description)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create challenge", "Challenge create failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, challenge)
}

type ensureScheduleRequest struct {
	Message string `json:"message"`
}

// EnsureSchedule handles POST /api/schedule. The body is optional; a message
// in it replaces the default notification text when the reveal fires.
// Idempotent: the first call of the day makes the decision, every later call
// echoes it.
func (h *OrchestrationHandler) EnsureSchedule(w http.ResponseWriter, r *http.Request) {
	var req ensureScheduleRequest
	if err := decodeJSON(r, &req); err != nil && err != io.EOF {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}

	now := h.clock.Now().UTC()

	record, err := h.scheduler.EnsureScheduleForDay(models.Day(now), now, req.Message)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to ensure schedule", "Schedule ensure failed", err)
		return
	}

	if record.NoChallenge() {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"scheduleDay": record.Day,
			"message":     "No schedule available",
		})
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// TriggerReveal handles POST /api/trigger, one poll of the reveal transition.
func (h *OrchestrationHandler) TriggerReveal(w http.ResponseWriter, r *http.Request) {
	result, err := h.trigger.TryReveal(h.clock.Now().UTC())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to process trigger", "Trigger failed", err)
		return
	}

	status := http.StatusOK
	switch result.State {
	case service.RevealNoChallenge:
		status = http.StatusNotFound
	case service.RevealPending, service.RevealAlreadyFired:
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

type notifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	PlayerID    string `json:"playerId"`
}

// Notify handles POST /api/notify, a manual fan-out outside the daily cycle.
func (h *OrchestrationHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}
	if req.Title == "" || req.Description == "" {
		respondWithError(w, http.StatusBadRequest, "Title and description are required", "", nil)
		return
	}

	report, err := h.notifier.Broadcast(r.Context(), service.BroadcastRequest{
		Title:  req.Title,
		Body:   req.Description,
		Icon:   req.Icon,
		Player: req.PlayerID,
	})
	if errors.Is(err, service.ErrNoRecipients) {
		respondWithError(w, http.StatusNotFound, "No subscriptions to notify", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to send notifications", "Manual notify failed", err)
		return
	}

	writeJSON(w, http.StatusAccepted, report)
}
