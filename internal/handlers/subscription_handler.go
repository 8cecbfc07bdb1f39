package handlers

import (
	"context"
	"log"
	"net/http"

	"sabeo/internal/models"
	"sabeo/internal/service"
)

// SubscriptionWriter is the write side of the device registration store.
type SubscriptionWriter interface {
	Create(sub *models.Subscription) error
	DeleteByEndpoint(endpoint string) error
}

// SubscriptionHandler manages web push device registrations.
type SubscriptionHandler struct {
	subscriptions SubscriptionWriter
	notifier      *service.Notifier
	welcomeTitle  string
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptions SubscriptionWriter, notifier *service.Notifier, welcomeTitle string) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		notifier:      notifier,
		welcomeTitle:  welcomeTitle,
	}
}

type subscribeRequest struct {
	Endpoint string                  `json:"endpoint"`
	Keys     models.SubscriptionKeys `json:"keys"`
}

// Subscribe handles POST /api/subscribe. Re-subscribing the same endpoint
// replaces the stored keys.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	player, ok := PlayerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Player identity required", "", nil)
		return
	}

	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		respondWithError(w, http.StatusBadRequest, "Endpoint and keys are required", "", nil)
		return
	}

	sub := &models.Subscription{
		Player:   player.ID,
		Endpoint: req.Endpoint,
		Keys:     req.Keys,
	}
	if err := h.subscriptions.Create(sub); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to store subscription", "Subscription create failed", err)
		return
	}

	// Confirmation push, detached so registration never waits on the push
	// service.
	welcome := *sub
	h.notifier.Go(func(ctx context.Context) {
		if err := h.notifier.SendWelcome(ctx, welcome, h.welcomeTitle, "Notificaciones activadas"); err != nil {
			log.Printf("Welcome push to %s failed: %v", welcome.Endpoint, err)
		}
	})

	writeJSON(w, http.StatusCreated, sub)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/unsubscribe.
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeJSON(r, &req); err != nil || req.Endpoint == "" {
		respondWithError(w, http.StatusBadRequest, "Endpoint is required", "", nil)
		return
	}

	if err := h.subscriptions.DeleteByEndpoint(req.Endpoint); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to remove subscription", "Subscription delete failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
