package handlers

import (
	"net/http"

	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/storage"
)

// StatsHandler serves aggregate statistics over stored sessions.
type StatsHandler struct {
	repo storage.SessionRepository
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(repo storage.SessionRepository) *StatsHandler {
	return &StatsHandler{repo: repo}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to compute stats", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
