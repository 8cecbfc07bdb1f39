package handlers

import (
	"net/http"

	"sabeo/internal/database"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /healthz. Unhealthy means the database is unreachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Database unreachable", "Health check failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
