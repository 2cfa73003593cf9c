package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconware/pos-reconcile-backend/internal/application/reconcile"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

var day = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func posRecord(id, customer, product, category, amount string) model.PosRecord {
	return model.PosRecord{
		ID:              id,
		Date:            day,
		CustomerName:    customer,
		ProductName:     product,
		ProductCategory: category,
		Quantity:        1,
		TotalAmount:     dec(amount),
	}
}

func TestInsertAndQueryCandidates(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	voided := posRecord("p-void", "Mary", "Guitar Lesson", "Lessons", "500")
	voided.Voided = true
	outOfRange := posRecord("p-old", "Mary", "Guitar Lesson", "Lessons", "500")
	outOfRange.Date = day.AddDate(0, -2, 0)

	require.NoError(t, s.InsertPosRecords(ctx, []model.PosRecord{
		posRecord("p1", "Mary", "Guitar Lesson", "Lessons", "500"),
		posRecord("p2", "John", "Piano Lesson", "Lessons", "700"),
		voided,
		outOfRange,
	}))

	records, err := s.QueryCandidates(ctx, model.TypeLessons, day, day.AddDate(0, 0, 7))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "p1", records[0].ID)
	assert.Equal(t, "p2", records[1].ID)
	assert.True(t, records[0].TotalAmount.Equal(dec("500")))
	assert.True(t, records[0].Date.Equal(day))
}

func TestQueryCandidates_CategoryPolicy(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.InsertPosRecords(ctx, []model.PosRecord{
		posRecord("p-lesson", "Mary", "Guitar Lesson", "Lessons", "500"),
		posRecord("p-retail", "John", "Strings", "Accessories", "120"),
		posRecord("p-wholesale", "Bulk Co", "String Crate", "Wholesale", "9000"),
	}))

	start, end := day, day

	t.Run("lessons only sees usage-billed products", func(t *testing.T) {
		records, err := s.QueryCandidates(ctx, model.TypeLessons, start, end)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "p-lesson", records[0].ID)
	})

	t.Run("wholesale only sees wholesale category", func(t *testing.T) {
		records, err := s.QueryCandidates(ctx, model.TypeWholesale, start, end)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "p-wholesale", records[0].ID)
	})

	t.Run("retail excludes wholesale", func(t *testing.T) {
		records, err := s.QueryCandidates(ctx, model.TypeRetail, start, end)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "p-lesson", records[0].ID)
		assert.Equal(t, "p-retail", records[1].ID)
	})
}

func TestInsertPosRecords_ReplacesOnSameID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.InsertPosRecords(ctx, []model.PosRecord{
		posRecord("p1", "Mary", "Guitar Lesson", "Lessons", "500"),
	}))
	require.NoError(t, s.InsertPosRecords(ctx, []model.PosRecord{
		posRecord("p1", "Mary", "Guitar Lesson", "Lessons", "650"),
	}))

	records, err := s.QueryCandidates(ctx, model.TypeLessons, day, day)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].TotalAmount.Equal(dec("650")))
}

func completedSession(id string) *reconcile.Session {
	item := model.InvoiceItem{ID: "i1", Date: day, CustomerName: "Mary", Quantity: 1, TotalAmount: dec("500")}
	group := model.AggregatedPosGroup{
		Date:          day,
		CustomerName:  "mary",
		GroupKey:      "lesson-usage",
		TotalQuantity: 1,
		TotalAmount:   dec("500"),
		MemberIDs:     []string{"p1"},
	}
	return &reconcile.Session{
		ID:          id,
		Type:        model.TypeLessons,
		RangeStart:  day,
		RangeEnd:    day.AddDate(0, 0, 7),
		CreatedBy:   "tester",
		State:       reconcile.StateCompleted,
		CreatedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
		Result: &model.ReconciliationResult{
			Matched: []model.MatchedPair{{
				Invoice:    item,
				Pos:        group,
				Tier:       model.TierExact,
				Confidence: 1.0,
				Variance:   model.Variance{AmountDiff: decimal.Zero, NameSimilarity: 1.0},
			}},
			InvoiceOnly: []model.InvoiceItem{{ID: "i2", Date: day, TotalAmount: dec("250")}},
			PosOnly:     []model.AggregatedPosGroup{{Date: day, CustomerName: "john", TotalAmount: dec("100"), MemberIDs: []string{"p2"}}},
			Summary: model.ReconciliationSummary{
				InvoiceCount:       2,
				PosCount:           2,
				MatchedCount:       1,
				MatchRate:          0.5,
				TotalInvoiceAmount: dec("750"),
				TotalPosAmount:     dec("600"),
				VarianceAmount:     dec("150"),
				VariancePercent:    dec("0.2"),
			},
			Warnings: []string{"pos record p3: voided record reached the engine"},
		},
	}
}

func TestSaveAndGetSession(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	saved := completedSession("sess-1")
	require.NoError(t, s.SaveSession(ctx, saved))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)

	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, saved.Type, got.Type)
	assert.Equal(t, saved.State, got.State)
	assert.True(t, got.RangeStart.Equal(day))

	sum := got.Result.Summary
	assert.Equal(t, 1, sum.MatchedCount)
	assert.True(t, sum.TotalInvoiceAmount.Equal(dec("750")))
	assert.True(t, sum.VarianceAmount.Equal(dec("150")))

	require.Len(t, got.Result.Matched, 1)
	pair := got.Result.Matched[0]
	assert.Equal(t, model.TierExact, pair.Tier)
	assert.Equal(t, 1.0, pair.Confidence)
	assert.Equal(t, "i1", pair.Invoice.ID)
	assert.Equal(t, []string{"p1"}, pair.Pos.MemberIDs)

	require.Len(t, got.Result.InvoiceOnly, 1)
	assert.Equal(t, "i2", got.Result.InvoiceOnly[0].ID)
	require.Len(t, got.Result.PosOnly, 1)
	assert.Equal(t, []string{"p2"}, got.Result.PosOnly[0].MemberIDs)

	require.Len(t, got.Result.Warnings, 1)
}

func TestSaveSession_RequiresResult(t *testing.T) {
	s := newTestStorage(t)
	err := s.SaveSession(context.Background(), &reconcile.Session{ID: "no-result"})
	assert.Error(t, err)
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetSession(context.Background(), "missing")
	assert.Error(t, err)
}

func TestGetSession_CorruptStoredJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed warnings", func(t *testing.T) {
		s := newTestStorage(t)
		require.NoError(t, s.SaveSession(ctx, completedSession("sess-1")))
		_, err := s.db.Exec(`UPDATE reconciliation_sessions SET warnings_json = 'not json' WHERE id = ?`, "sess-1")
		require.NoError(t, err)

		_, err = s.GetSession(ctx, "sess-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed warnings")
	})

	t.Run("malformed line payload", func(t *testing.T) {
		s := newTestStorage(t)
		require.NoError(t, s.SaveSession(ctx, completedSession("sess-1")))
		_, err := s.db.Exec(`UPDATE session_lines SET invoice_json = '{broken' WHERE session_id = ?`, "sess-1")
		require.NoError(t, err)

		_, err = s.GetSession(ctx, "sess-1")
		require.Error(t, err)
	})
}

func TestListSessions(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first := completedSession("sess-1")
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	second := completedSession("sess-2")
	require.NoError(t, s.SaveSession(ctx, first))
	require.NoError(t, s.SaveSession(ctx, second))

	rows, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "sess-2", rows[0].ID)
	assert.Equal(t, "sess-1", rows[1].ID)
	assert.Equal(t, 1, rows[0].MatchedCount)
	assert.True(t, rows[0].VarianceAmount.Equal(dec("150")))

	t.Run("respects limit", func(t *testing.T) {
		rows, err := s.ListSessions(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestGetStats(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, completedSession("sess-1")))
	require.NoError(t, s.SaveSession(ctx, completedSession("sess-2")))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 2, stats.CompletedCount)
	assert.Equal(t, 0, stats.FailedCount)
	assert.Equal(t, 2, stats.TotalMatched)
	assert.InDelta(t, 0.5, stats.AverageMatchRate, 1e-9)
	assert.Equal(t, 2, stats.SessionsByType[model.TypeLessons])
}

func TestGetStats_Empty(t *testing.T) {
	s := newTestStorage(t)
	stats, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSessions)
	assert.Zero(t, stats.AverageMatchRate)
}

func TestOrchestratorRun_AgainstSQLite(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.InsertPosRecords(ctx, []model.PosRecord{
		posRecord("p1", "Mary Smith", "Guitar Lesson", "Lessons", "1500"),
	}))

	o := reconcile.NewOrchestrator(s, s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	session, err := o.Run(ctx, reconcile.RunInput{
		Type:       model.TypeLessons,
		RangeStart: day,
		RangeEnd:   day.AddDate(0, 0, 7),
		CreatedBy:  "tester",
		InvoiceItems: []model.InvoiceItem{
			{ID: "i1", Date: day, CustomerName: "Mary Smith", Quantity: 1, TotalAmount: dec("1500")},
		},
		Options: model.DefaultOptions(),
	})
	require.NoError(t, err)
	require.Equal(t, reconcile.StateCompleted, session.State)

	// The stored row must carry the terminal state, not a running snapshot.
	stored, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, reconcile.StateCompleted, stored.State)
	assert.False(t, stored.CompletedAt.IsZero())
	assert.Equal(t, 1, stored.Result.Summary.MatchedCount)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.InDelta(t, 1.0, stats.AverageMatchRate, 1e-9)
}

func TestMockSaveSessionSnapshots(t *testing.T) {
	m := NewMockRepository()
	ctx := context.Background()

	session := completedSession("sess-1")
	session.State = reconcile.StateRunning
	require.NoError(t, m.SaveSession(ctx, session))

	// Post-save mutations must not be visible in the stored row, matching
	// the SQLite implementation.
	session.State = reconcile.StateFailed
	session.Error = "mutated after save"

	stored, err := m.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, reconcile.StateRunning, stored.State)
	assert.Empty(t, stored.Error)
}
