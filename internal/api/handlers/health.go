package handlers

import (
	"net/http"
)

// HealthHandler serves liveness checks.
type HealthHandler struct{}

// NewHealthHandler creates a health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
