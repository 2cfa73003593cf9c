package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/reconware/pos-reconcile-backend/internal/application/reconcile"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// SessionRow is the list view of a stored session, without line data.
type SessionRow struct {
	ID              string                   `json:"id"`
	Type            model.ReconciliationType `json:"type"`
	RangeStart      time.Time                `json:"range_start"`
	RangeEnd        time.Time                `json:"range_end"`
	CreatedBy       string                   `json:"created_by,omitempty"`
	State           reconcile.State          `json:"state"`
	CreatedAt       time.Time                `json:"created_at"`
	MatchedCount    int                      `json:"matched_count"`
	InvoiceCount    int                      `json:"invoice_count"`
	PosCount        int                      `json:"pos_count"`
	MatchRate       float64                  `json:"match_rate"`
	VarianceAmount  decimal.Decimal          `json:"variance_amount"`
	VariancePercent decimal.Decimal          `json:"variance_percent"`
}

// Stats aggregates all stored sessions.
type Stats struct {
	TotalSessions    int                              `json:"total_sessions"`
	CompletedCount   int                              `json:"completed_count"`
	FailedCount      int                              `json:"failed_count"`
	TotalMatched     int                              `json:"total_matched"`
	AverageMatchRate float64                          `json:"average_match_rate"`
	SessionsByType   map[model.ReconciliationType]int `json:"sessions_by_type"`
}

// line kinds stored in session_lines.
const (
	lineMatched     = "matched"
	lineInvoiceOnly = "invoice_only"
	linePosOnly     = "pos_only"
)
