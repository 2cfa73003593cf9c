package match

import (
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// Result is the raw partition the matcher produces: every invoice item and
// every group passed in lands in exactly one of the three sets.
type Result struct {
	Matched     []model.MatchedPair
	InvoiceOnly []model.InvoiceItem
	PosOnly     []model.AggregatedPosGroup
}

// bucket holds the same-date slice of both sides. Matching never crosses
// date boundaries, so buckets are independent units of work.
type bucket struct {
	items  []model.InvoiceItem
	groups []model.AggregatedPosGroup
}
