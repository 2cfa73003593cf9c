package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/reconware/pos-reconcile-backend/internal/application/reconcile"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// MockRepository is an in-memory implementation of Repository for testing.
type MockRepository struct {
	mu       sync.RWMutex
	records  []model.PosRecord
	sessions map[string]*reconcile.Session
	order    []string

	// QueryErr and SaveErr, when set, are returned by the corresponding
	// operations to simulate collaborator failures.
	QueryErr error
	SaveErr  error
}

var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates an empty in-memory repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{sessions: make(map[string]*reconcile.Session)}
}

// Close is a no-op.
func (m *MockRepository) Close() error { return nil }

// InsertPosRecords appends records, replacing rows with the same ID.
func (m *MockRepository) InsertPosRecords(_ context.Context, records []model.PosRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		replaced := false
		for i := range m.records {
			if m.records[i].ID == rec.ID {
				m.records[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			m.records = append(m.records, rec)
		}
	}
	return nil
}

// QueryCandidates filters the in-memory rows by date and voided flag; the
// mock does not apply per-type category policy.
func (m *MockRepository) QueryCandidates(_ context.Context, _ model.ReconciliationType, start, end time.Time) ([]model.PosRecord, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	startKey, endKey := model.DateKey(start), model.DateKey(end)
	var out []model.PosRecord
	for _, rec := range m.records {
		if rec.Voided {
			continue
		}
		key := model.DateKey(rec.Date)
		if key < startKey || key > endKey {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := model.DateKey(out[i].Date), model.DateKey(out[j].Date)
		if ki != kj {
			return ki < kj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveSession stores a snapshot of the session by ID. Copying matches the
// SQLite implementation: mutations the caller makes after saving must not
// leak into the stored row.
func (m *MockRepository) SaveSession(_ context.Context, session *reconcile.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		m.order = append(m.order, session.ID)
	}
	saved := *session
	if session.Result != nil {
		result := *session.Result
		saved.Result = &result
	}
	m.sessions[session.ID] = &saved
	return nil
}

// GetSession retrieves a stored session.
func (m *MockRepository) GetSession(_ context.Context, id string) (*reconcile.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return session, nil
}

// ListSessions returns stored sessions, newest first.
func (m *MockRepository) ListSessions(_ context.Context, limit int) ([]SessionRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}

	rows := make([]SessionRow, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0 && len(rows) < limit; i-- {
		s := m.sessions[m.order[i]]
		row := SessionRow{
			ID:         s.ID,
			Type:       s.Type,
			RangeStart: s.RangeStart,
			RangeEnd:   s.RangeEnd,
			CreatedBy:  s.CreatedBy,
			State:      s.State,
			CreatedAt:  s.CreatedAt,
		}
		if s.Result != nil {
			sum := s.Result.Summary
			row.InvoiceCount = sum.InvoiceCount
			row.PosCount = sum.PosCount
			row.MatchedCount = sum.MatchedCount
			row.MatchRate = sum.MatchRate
			row.VarianceAmount = sum.VarianceAmount
			row.VariancePercent = sum.VariancePercent
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GetStats aggregates the stored sessions.
func (m *MockRepository) GetStats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{SessionsByType: make(map[model.ReconciliationType]int)}
	var rateSum float64
	for _, s := range m.sessions {
		stats.TotalSessions++
		stats.SessionsByType[s.Type]++
		switch s.State {
		case reconcile.StateCompleted:
			stats.CompletedCount++
			if s.Result != nil {
				stats.TotalMatched += s.Result.Summary.MatchedCount
				rateSum += s.Result.Summary.MatchRate
			}
		case reconcile.StateFailed:
			stats.FailedCount++
		}
	}
	if stats.CompletedCount > 0 {
		stats.AverageMatchRate = rateSum / float64(stats.CompletedCount)
	}
	return stats, nil
}
