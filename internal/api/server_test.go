package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconware/pos-reconcile-backend/internal/application/reconcile"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/storage"
)

func newTestServer(repo storage.Repository) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(DefaultConfig(), repo, model.DefaultOptions(), logger)
}

func seedPosRecords(t *testing.T, repo *storage.MockRepository) {
	t.Helper()
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	err := repo.InsertPosRecords(context.Background(), []model.PosRecord{
		{
			ID:           "p1",
			Date:         day,
			CustomerName: "Mary Smith",
			ProductName:  "Guitar Lesson",
			Quantity:     1,
			TotalAmount:  decimal.NewFromInt(1500),
		},
	})
	require.NoError(t, err)
}

func reconcileBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body := map[string]any{
		"type":        "lessons",
		"range_start": "2025-01-15",
		"range_end":   "2025-01-21",
		"created_by":  "tester",
		"items": []map[string]any{
			{
				"id":            "i1",
				"date":          "2025-01-15",
				"customer_name": "Mary Smith",
				"quantity":      1,
				"total_amount":  "1500",
			},
		},
	}
	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(body))
	return buf
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(storage.NewMockRepository())

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestReconcileEndpoint(t *testing.T) {
	repo := storage.NewMockRepository()
	seedPosRecords(t, repo)
	server := newTestServer(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", reconcileBody(t))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session reconcile.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, reconcile.StateCompleted, session.State)
	assert.NotEmpty(t, session.ID)
	require.NotNil(t, session.Result)
	assert.Equal(t, 1, session.Result.Summary.MatchedCount)
	assert.Equal(t, model.TierExact, session.Result.Matched[0].Tier)

	t.Run("session is persisted", func(t *testing.T) {
		stored, err := repo.GetSession(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.ID, stored.ID)
	})
}

func TestReconcileEndpoint_BadRequests(t *testing.T) {
	server := newTestServer(storage.NewMockRepository())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type":`},
		{"unknown type", `{"type":"barter","range_start":"2025-01-15","range_end":"2025-01-21"}`},
		{"missing range", `{"type":"lessons","range_start":"","range_end":""}`},
		{"unparseable range", `{"type":"lessons","range_start":"soon","range_end":"later"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/reconcile", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestReconcileEndpoint_StoreUnavailable(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.QueryErr = errors.New("database is locked")
	server := newTestServer(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", reconcileBody(t))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var session reconcile.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, reconcile.StateFailed, session.State)
	assert.Contains(t, session.Error, "database is locked")
}

func TestReconcileEndpoint_OptionsOverride(t *testing.T) {
	repo := storage.NewMockRepository()
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.InsertPosRecords(context.Background(), []model.PosRecord{
		{
			ID:           "p1",
			Date:         day,
			CustomerName: "John Doe",
			ProductName:  "Guitar Lesson",
			Quantity:     1,
			TotalAmount:  decimal.NewFromInt(1020),
		},
	}))
	server := newTestServer(repo)

	// A strict zero-tolerance override makes the near-miss amount unmatched.
	body := `{
		"type": "lessons",
		"range_start": "2025-01-15",
		"range_end": "2025-01-21",
		"items": [{"id": "i1", "date": "2025-01-15", "customer_name": "John Doe", "total_amount": "1000"}],
		"options": {"tolerance_amount": "0", "tolerance_percent": "0"}
	}`

	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session reconcile.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Zero(t, session.Result.Summary.MatchedCount)
	assert.Len(t, session.Result.InvoiceOnly, 1)
}

func runSession(t *testing.T, server *Server) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", reconcileBody(t))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session reconcile.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	return session.ID
}

func TestSessionsEndpoints(t *testing.T) {
	repo := storage.NewMockRepository()
	seedPosRecords(t, repo)
	server := newTestServer(repo)
	id := runSession(t, server)

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Sessions []storage.SessionRow `json:"sessions"`
			Count    int                  `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, id, resp.Sessions[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		target := fmt.Sprintf("/api/sessions/%s", id)
		server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var session reconcile.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
		assert.Equal(t, id, session.ID)
	})

	t.Run("get missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStatsEndpoint(t *testing.T) {
	repo := storage.NewMockRepository()
	seedPosRecords(t, repo)
	server := newTestServer(repo)
	runSession(t, server)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var stats storage.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.CompletedCount)
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(storage.NewMockRepository())

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResponsesAreJSON(t *testing.T) {
	server := newTestServer(storage.NewMockRepository())

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var decoded map[string]any
	body, _ := io.ReadAll(rec.Body)
	assert.NoError(t, json.Unmarshal(body, &decoded))
}
