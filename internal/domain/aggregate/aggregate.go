// Package aggregate pre-groups point-of-sale records before matching. Some
// reconciliation types bill several same-day rows as a single invoice line
// (e.g. repeated lesson usage by one customer), so those rows are folded into
// one summed group; other types keep every row as its own singleton group.
package aggregate

import (
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
	"github.com/reconware/pos-reconcile-backend/internal/domain/normalize"
)

// Strategy describes how a reconciliation type folds records.
type Strategy struct {
	// FoldsManyToOne enables grouping by (date, customer, group key).
	FoldsManyToOne bool
	// Classify derives the product group key for a record. Records with the
	// same key on the same day for the same customer fold together.
	Classify func(model.PosRecord) string
}

// Fold turns records into aggregated groups, preserving input order: groups
// appear in first-seen order and members keep their input order. When the
// strategy does not fold, each record becomes a singleton group.
func Fold(records []model.PosRecord, strat Strategy) []model.AggregatedPosGroup {
	groups := make([]model.AggregatedPosGroup, 0, len(records))

	if !strat.FoldsManyToOne {
		for _, rec := range records {
			groups = append(groups, singleton(rec, strat))
		}
		return groups
	}

	type key struct {
		date     string
		customer string
		group    string
	}
	index := make(map[key]int)

	for _, rec := range records {
		k := key{
			date:     model.DateKey(rec.Date),
			customer: normalize.Name(rec.CustomerName),
			group:    classify(rec, strat),
		}
		i, ok := index[k]
		if !ok {
			index[k] = len(groups)
			groups = append(groups, model.AggregatedPosGroup{
				Date:         model.DateOnly(rec.Date),
				CustomerName: k.customer,
				GroupKey:     k.group,
			})
			i = index[k]
		}
		g := &groups[i]
		g.TotalQuantity += rec.Quantity
		g.TotalAmount = g.TotalAmount.Add(rec.TotalAmount)
		g.MemberIDs = append(g.MemberIDs, rec.ID)
		g.Members = append(g.Members, rec)
	}
	return groups
}

func singleton(rec model.PosRecord, strat Strategy) model.AggregatedPosGroup {
	return model.AggregatedPosGroup{
		Date:          model.DateOnly(rec.Date),
		CustomerName:  normalize.Name(rec.CustomerName),
		GroupKey:      classify(rec, strat),
		TotalQuantity: rec.Quantity,
		TotalAmount:   rec.TotalAmount,
		MemberIDs:     []string{rec.ID},
		Members:       []model.PosRecord{rec},
	}
}

func classify(rec model.PosRecord, strat Strategy) string {
	if strat.Classify == nil {
		return rec.ProductCategory
	}
	return strat.Classify(rec)
}
