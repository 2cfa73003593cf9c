// Package summary reduces a completed matching partition to its aggregate
// statistics: side totals, match rate, and signed variance.
package summary

import (
	"github.com/shopspring/decimal"

	"github.com/reconware/pos-reconcile-backend/internal/domain/match"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

var varianceFloor = decimal.NewFromFloat(0.01)

// Build computes summary statistics over a matcher result. invoiceCount and
// posCount are the counts of valid records presented to the matcher (groups
// may fold several point-of-sale records into one, so the result alone does
// not carry the record count).
func Build(result match.Result, invoiceCount, posCount int) model.ReconciliationSummary {
	s := model.ReconciliationSummary{
		InvoiceCount: invoiceCount,
		PosCount:     posCount,
		MatchedCount: len(result.Matched),
	}

	for _, p := range result.Matched {
		s.TotalInvoiceAmount = s.TotalInvoiceAmount.Add(p.Invoice.TotalAmount)
		s.TotalPosAmount = s.TotalPosAmount.Add(p.Pos.TotalAmount)
	}
	for _, item := range result.InvoiceOnly {
		s.TotalInvoiceAmount = s.TotalInvoiceAmount.Add(item.TotalAmount)
	}
	for _, g := range result.PosOnly {
		s.TotalPosAmount = s.TotalPosAmount.Add(g.TotalAmount)
	}

	if denom := max(invoiceCount, posCount); denom > 0 {
		s.MatchRate = float64(s.MatchedCount) / float64(denom)
	}

	s.VarianceAmount = s.TotalInvoiceAmount.Sub(s.TotalPosAmount)
	base := s.TotalInvoiceAmount
	if base.LessThan(varianceFloor) {
		base = varianceFloor
	}
	s.VariancePercent = s.VarianceAmount.Div(base).Round(6)

	return s
}
