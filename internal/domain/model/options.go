package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Options holds the per-session matching tolerances. Callers override
// individual fields; zero values are not meaningful defaults, use
// DefaultOptions as the base.
type Options struct {
	// ToleranceAmount is the fixed allowance for treating two amounts as
	// equal during fuzzy passes, in the smallest practical currency unit.
	ToleranceAmount decimal.Decimal `json:"tolerance_amount"`
	// TolerancePercent is the relative allowance, as a fraction of the
	// invoice amount.
	TolerancePercent decimal.Decimal `json:"tolerance_percent"`
	// NameSimilarityThreshold is the minimum similarity for a fuzzy-name
	// pairing, in [0,1].
	NameSimilarityThreshold float64 `json:"name_similarity_threshold"`
}

// DefaultOptions returns the standard session tolerances.
func DefaultOptions() Options {
	return Options{
		ToleranceAmount:         decimal.NewFromInt(50),
		TolerancePercent:        decimal.NewFromFloat(0.05),
		NameSimilarityThreshold: 0.8,
	}
}

// Validate rejects configurations that must never reach the matcher.
func (o Options) Validate() error {
	if o.ToleranceAmount.IsNegative() {
		return fmt.Errorf("%w: tolerance amount %s is negative", ErrInvalidConfiguration, o.ToleranceAmount)
	}
	if o.TolerancePercent.IsNegative() || o.TolerancePercent.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: tolerance percent %s outside [0,1]", ErrInvalidConfiguration, o.TolerancePercent)
	}
	if o.NameSimilarityThreshold < 0 || o.NameSimilarityThreshold > 1 {
		return fmt.Errorf("%w: name similarity threshold %v outside [0,1]", ErrInvalidConfiguration, o.NameSimilarityThreshold)
	}
	return nil
}
