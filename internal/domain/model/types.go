// Package model holds the shared reconciliation data model: the two input
// record shapes, the aggregated point-of-sale group, and the result types
// produced by a matching run.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationType selects the matching strategy for a run.
type ReconciliationType string

const (
	// TypeLessons folds same-day lesson-usage rows per customer into one
	// group before matching, since one invoice line covers several visits.
	TypeLessons ReconciliationType = "lessons"
	// TypeRetail matches each point-of-sale row individually.
	TypeRetail ReconciliationType = "retail"
	// TypeWholesale folds same-day rows per customer and product category.
	TypeWholesale ReconciliationType = "wholesale"
)

// InvoiceItem is one externally supplied invoice line. Immutable once
// constructed; owned by the run that received it.
type InvoiceItem struct {
	ID           string            `json:"id"`
	Date         time.Time         `json:"date"`
	CustomerName string            `json:"customer_name"`
	ProductType  string            `json:"product_type,omitempty"`
	Quantity     int               `json:"quantity"`
	UnitPrice    decimal.Decimal   `json:"unit_price"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Notes        string            `json:"notes,omitempty"`
	RawSource    map[string]string `json:"raw_source,omitempty"`
}

// PosRecord is one row returned by the transactional store.
type PosRecord struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	CustomerName    string          `json:"customer_name"`
	ProductName     string          `json:"product_name"`
	ProductCategory string          `json:"product_category,omitempty"`
	Quantity        int             `json:"quantity"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SKU             string          `json:"sku,omitempty"`
	Voided          bool            `json:"voided"`
}

// AggregatedPosGroup is the matcher-side unit: one or more point-of-sale
// records sharing (date, normalized customer name, group key), pre-summed.
// Groups of size one are still represented this way so downstream handling
// is uniform. Member order preserves input order.
type AggregatedPosGroup struct {
	Date          time.Time       `json:"date"`
	CustomerName  string          `json:"customer_name"` // normalized
	GroupKey      string          `json:"group_key"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	MemberIDs     []string        `json:"member_ids"`
	Members       []PosRecord     `json:"members,omitempty"`
}

// MatchTier classifies how a pair was found.
type MatchTier string

const (
	TierExact       MatchTier = "exact"
	TierFuzzyName   MatchTier = "fuzzy_name"
	TierFuzzyAmount MatchTier = "fuzzy_amount"
)

// Variance describes how far apart the two sides of a pair are.
type Variance struct {
	AmountDiff     decimal.Decimal `json:"amount_diff"`
	QuantityDiff   int             `json:"quantity_diff"`
	NameSimilarity float64         `json:"name_similarity"`
}

// MatchedPair links one invoice item to one point-of-sale group.
// Read-only after the matcher produces it.
type MatchedPair struct {
	Invoice    InvoiceItem        `json:"invoice"`
	Pos        AggregatedPosGroup `json:"pos"`
	Tier       MatchTier          `json:"tier"`
	Confidence float64            `json:"confidence"`
	Variance   Variance           `json:"variance"`
}

// ReconciliationSummary aggregates a completed partition.
type ReconciliationSummary struct {
	InvoiceCount       int             `json:"invoice_count"`
	PosCount           int             `json:"pos_count"`
	MatchedCount       int             `json:"matched_count"`
	MatchRate          float64         `json:"match_rate"`
	TotalInvoiceAmount decimal.Decimal `json:"total_invoice_amount"`
	TotalPosAmount     decimal.Decimal `json:"total_pos_amount"`
	VarianceAmount     decimal.Decimal `json:"variance_amount"`
	VariancePercent    decimal.Decimal `json:"variance_percent"`
}

// ReconciliationResult is the full outcome of one run. Every valid input
// record lands in exactly one of Matched, InvoiceOnly, or PosOnly; rows
// excluded for data-quality reasons are reported in Warnings instead.
type ReconciliationResult struct {
	Matched     []MatchedPair         `json:"matched"`
	InvoiceOnly []InvoiceItem         `json:"invoice_only"`
	PosOnly     []AggregatedPosGroup  `json:"pos_only"`
	Summary     ReconciliationSummary `json:"summary"`
	Warnings    []string              `json:"warnings,omitempty"`
}

// DateOnly strips the time component, keeping the calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey formats a date for bucketing and storage.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
