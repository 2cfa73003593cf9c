package reconcile

import (
	"fmt"
	"strings"

	"github.com/reconware/pos-reconcile-backend/internal/domain/aggregate"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// lessonLabels mark products that bill as lesson usage. Several same-day
// usage rows for one customer appear as a single line on the invoice side,
// so they all fold under one group key.
var lessonLabels = []string{"lesson", "class", "course", "tuition"}

const lessonGroupKey = "lesson-usage"

// strategies maps each reconciliation type to its aggregation behavior.
// Type-specific rules live here, not as branches inside the matcher.
var strategies = map[model.ReconciliationType]aggregate.Strategy{
	model.TypeLessons: {
		FoldsManyToOne: true,
		Classify:       classifyLesson,
	},
	model.TypeRetail: {
		FoldsManyToOne: false,
		Classify:       classifyCategory,
	},
	model.TypeWholesale: {
		FoldsManyToOne: true,
		Classify:       classifyCategory,
	},
}

// StrategyFor resolves the aggregation strategy for a reconciliation type.
func StrategyFor(recType model.ReconciliationType) (aggregate.Strategy, error) {
	strat, ok := strategies[recType]
	if !ok {
		return aggregate.Strategy{}, fmt.Errorf("%w: unknown reconciliation type %q", model.ErrInvalidConfiguration, recType)
	}
	return strat, nil
}

func classifyLesson(rec model.PosRecord) string {
	name := strings.ToLower(rec.ProductName)
	category := strings.ToLower(rec.ProductCategory)
	for _, label := range lessonLabels {
		if strings.Contains(name, label) || strings.Contains(category, label) {
			return lessonGroupKey
		}
	}
	return classifyCategory(rec)
}

func classifyCategory(rec model.PosRecord) string {
	if rec.ProductCategory != "" {
		return strings.ToLower(rec.ProductCategory)
	}
	return strings.ToLower(rec.ProductName)
}
