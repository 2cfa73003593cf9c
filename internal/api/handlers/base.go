package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/reconware/pos-reconcile-backend/internal/api/dto"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func WriteError(w http.ResponseWriter, status int, message, detail string) {
	WriteJSON(w, status, dto.APIError{Error: message, Detail: detail})
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
