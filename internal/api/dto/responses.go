package dto

import (
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/storage"
)

// APIError is the error body returned by all endpoints.
type APIError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// SessionListResponse wraps a page of stored sessions.
type SessionListResponse struct {
	Sessions []storage.SessionRow `json:"sessions"`
	Count    int                  `json:"count"`
}
