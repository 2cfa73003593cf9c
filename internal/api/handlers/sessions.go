package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reconware/pos-reconcile-backend/internal/api/dto"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/storage"
)

// SessionsHandler serves the stored session history.
type SessionsHandler struct {
	repo storage.SessionRepository
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(repo storage.SessionRepository) *SessionsHandler {
	return &SessionsHandler{repo: repo}
}

// List handles GET /api/sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 50)

	sessions, err := h.repo.ListSessions(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list sessions", err.Error())
		return
	}
	if sessions == nil {
		sessions = []storage.SessionRow{}
	}

	WriteJSON(w, http.StatusOK, dto.SessionListResponse{Sessions: sessions, Count: len(sessions)})
}

// Get handles GET /api/sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := h.repo.GetSession(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "session not found", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, session)
}
