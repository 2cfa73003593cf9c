// Package score computes the two signals the matcher ranks candidates by:
// a name-similarity ratio and an amount-closeness ratio, plus the
// tolerance-based predicate deciding whether two amounts count as "the same".
package score

import (
	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// amountFloor guards the ratio denominators against tiny or zero amounts.
var amountFloor = decimal.NewFromFloat(0.01)

// NameSimilarity converts the edit distance between two normalized names
// into a ratio in [0,1]. Both empty yields 1.0, exactly one empty yields 0.0.
func NameSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// AmountMatches reports whether a candidate amount falls within either the
// fixed or the relative tolerance of the invoice amount.
func AmountMatches(invoiceAmount, candidateAmount, toleranceAmount, tolerancePercent decimal.Decimal) bool {
	diff := invoiceAmount.Sub(candidateAmount).Abs()
	if diff.LessThanOrEqual(toleranceAmount) {
		return true
	}
	base := invoiceAmount.Abs()
	if base.LessThan(amountFloor) {
		base = amountFloor
	}
	return diff.Div(base).LessThanOrEqual(tolerancePercent)
}

// AmountCloseness rates how near two amounts are on a [0,1] scale, where 1
// means identical and 0 means the difference is at least as large as the
// bigger amount.
func AmountCloseness(invoiceAmount, candidateAmount decimal.Decimal) float64 {
	diff := invoiceAmount.Sub(candidateAmount).Abs()
	base := invoiceAmount.Abs()
	if c := candidateAmount.Abs(); c.GreaterThan(base) {
		base = c
	}
	if base.LessThan(amountFloor) {
		base = amountFloor
	}
	ratio, _ := diff.Div(base).Float64()
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}
