// Package match implements the multi-pass reconciliation matcher. It pairs
// invoice items with aggregated point-of-sale groups in three ordered passes
// per calendar date: exact name+amount, fuzzy name within amount tolerance,
// and finally amount-only when a single unambiguous candidate remains.
//
// Absence of a match is a normal outcome, not an error: unpaired entries are
// returned in the partition. Matching never crosses date boundaries, so each
// date bucket is matched by its own worker and the per-date results are
// merged in ascending date order to keep output reproducible.
package match

import (
	"sort"
	"sync"

	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
	"github.com/reconware/pos-reconcile-backend/internal/domain/normalize"
	"github.com/reconware/pos-reconcile-backend/internal/domain/score"
)

// Matcher runs the three-pass algorithm under one session's tolerances.
type Matcher struct {
	opts model.Options
}

// New creates a matcher with the given session options.
func New(opts model.Options) *Matcher {
	return &Matcher{opts: opts}
}

// Run partitions the inputs into matched pairs and per-side leftovers.
// Inputs are expected to be pre-screened; both slices keep their insertion
// order, which is the tie-break order for ambiguous exact matches.
func (m *Matcher) Run(items []model.InvoiceItem, groups []model.AggregatedPosGroup) Result {
	buckets, dates := bucketize(items, groups)

	results := make([]Result, len(dates))
	var wg sync.WaitGroup
	for i, date := range dates {
		wg.Add(1)
		go func(i int, b bucket) {
			defer wg.Done()
			results[i] = m.matchBucket(b)
		}(i, buckets[date])
	}
	wg.Wait()

	var out Result
	for _, r := range results {
		out.Matched = append(out.Matched, r.Matched...)
		out.InvoiceOnly = append(out.InvoiceOnly, r.InvoiceOnly...)
		out.PosOnly = append(out.PosOnly, r.PosOnly...)
	}
	return out
}

// bucketize splits both sides by calendar date and returns the bucket map
// plus its keys in ascending order.
func bucketize(items []model.InvoiceItem, groups []model.AggregatedPosGroup) (map[string]bucket, []string) {
	buckets := make(map[string]bucket)
	for _, item := range items {
		key := model.DateKey(item.Date)
		b := buckets[key]
		b.items = append(b.items, item)
		buckets[key] = b
	}
	for _, g := range groups {
		key := model.DateKey(g.Date)
		b := buckets[key]
		b.groups = append(b.groups, g)
		buckets[key] = b
	}

	dates := make([]string, 0, len(buckets))
	for key := range buckets {
		dates = append(dates, key)
	}
	sort.Strings(dates)
	return buckets, dates
}

// matchBucket runs the three passes over one same-date bucket.
func (m *Matcher) matchBucket(b bucket) Result {
	names := make([]string, len(b.items))
	for i, item := range b.items {
		names[i] = normalize.Name(item.CustomerName)
	}

	itemDone := make([]bool, len(b.items))
	groupUsed := make([]bool, len(b.groups))
	var matched []model.MatchedPair

	// Pass 1: exact name and exact amount (after rounding to cents).
	// Multiple qualifying candidates are resolved by insertion order rather
	// than deferred; exact collisions must not block reconciliation.
	for i, item := range b.items {
		amount := item.TotalAmount.Round(2)
		for j, g := range b.groups {
			if groupUsed[j] {
				continue
			}
			if g.CustomerName != names[i] || !g.TotalAmount.Round(2).Equal(amount) {
				continue
			}
			matched = append(matched, m.pair(item, g, model.TierExact, 1.0, 1.0))
			itemDone[i] = true
			groupUsed[j] = true
			break
		}
	}

	// Pass 2: best fuzzy-name candidate among amount-tolerant groups.
	// Ties on similarity fall back to amount closeness, then to insertion
	// order (the earlier candidate wins by never being displaced on equals).
	for i, item := range b.items {
		if itemDone[i] {
			continue
		}
		bestJ := -1
		var bestSim, bestClose float64
		for j, g := range b.groups {
			if groupUsed[j] {
				continue
			}
			if !score.AmountMatches(item.TotalAmount, g.TotalAmount, m.opts.ToleranceAmount, m.opts.TolerancePercent) {
				continue
			}
			sim := score.NameSimilarity(names[i], g.CustomerName)
			if sim < m.opts.NameSimilarityThreshold {
				continue
			}
			closeness := score.AmountCloseness(item.TotalAmount, g.TotalAmount)
			if bestJ < 0 || sim > bestSim || (sim == bestSim && closeness > bestClose) {
				bestJ, bestSim, bestClose = j, sim, closeness
			}
		}
		if bestJ < 0 {
			continue
		}
		conf := 0.6*bestSim + 0.4*bestClose
		if conf >= 1 {
			conf = 0.99
		}
		matched = append(matched, m.pair(item, b.groups[bestJ], model.TierFuzzyName, conf, bestSim))
		itemDone[i] = true
		groupUsed[bestJ] = true
	}

	// Pass 3: amount evidence only. Requires exactly one tolerant candidate;
	// with several, the item stays unmatched since there is no name signal
	// to break the tie.
	for i, item := range b.items {
		if itemDone[i] {
			continue
		}
		candidate := -1
		for j, g := range b.groups {
			if groupUsed[j] {
				continue
			}
			if !score.AmountMatches(item.TotalAmount, g.TotalAmount, m.opts.ToleranceAmount, m.opts.TolerancePercent) {
				continue
			}
			if candidate >= 0 {
				candidate = -2
				break
			}
			candidate = j
		}
		if candidate < 0 {
			continue
		}
		g := b.groups[candidate]
		conf := m.fuzzyAmountConfidence(score.AmountCloseness(item.TotalAmount, g.TotalAmount))
		sim := score.NameSimilarity(names[i], g.CustomerName)
		matched = append(matched, m.pair(item, g, model.TierFuzzyAmount, conf, sim))
		itemDone[i] = true
		groupUsed[candidate] = true
	}

	result := Result{Matched: matched}
	for i, item := range b.items {
		if !itemDone[i] {
			result.InvoiceOnly = append(result.InvoiceOnly, item)
		}
	}
	for j, g := range b.groups {
		if !groupUsed[j] {
			result.PosOnly = append(result.PosOnly, g)
		}
	}
	return result
}

// fuzzyAmountConfidence keeps amount-only confidence strictly below the
// lowest confidence a fuzzy-name pair can have, and strictly above zero.
func (m *Matcher) fuzzyAmountConfidence(closeness float64) float64 {
	conf := 0.5 * closeness
	ceiling := 0.6*m.opts.NameSimilarityThreshold - 0.01
	if ceiling < 0.01 {
		ceiling = 0.01
	}
	if conf > ceiling {
		conf = ceiling
	}
	if conf < 0.01 {
		conf = 0.01
	}
	return conf
}

func (m *Matcher) pair(item model.InvoiceItem, g model.AggregatedPosGroup, tier model.MatchTier, confidence, similarity float64) model.MatchedPair {
	return model.MatchedPair{
		Invoice:    item,
		Pos:        g,
		Tier:       tier,
		Confidence: confidence,
		Variance: model.Variance{
			AmountDiff:     item.TotalAmount.Sub(g.TotalAmount),
			QuantityDiff:   item.Quantity - g.TotalQuantity,
			NameSimilarity: similarity,
		},
	}
}
