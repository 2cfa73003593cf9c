// Package reconcile is the engine's public entry point. It validates inputs,
// selects the aggregation strategy for the reconciliation type, runs the
// matcher, and assembles the result; the session orchestrator additionally
// drives the store and persistence collaborators around one run.
package reconcile

import (
	"github.com/reconware/pos-reconcile-backend/internal/domain/aggregate"
	"github.com/reconware/pos-reconcile-backend/internal/domain/match"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
	"github.com/reconware/pos-reconcile-backend/internal/domain/summary"
)

// Reconcile performs one deterministic matching pass over already-materialized
// inputs and returns the full partition with its summary. Data-quality
// problems on individual rows become warnings in the result; only an unknown
// type or invalid options produce an error.
func Reconcile(items []model.InvoiceItem, candidates []model.PosRecord, recType model.ReconciliationType, opts model.Options) (*model.ReconciliationResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	strat, err := StrategyFor(recType)
	if err != nil {
		return nil, err
	}

	validItems, itemWarnings := match.ScreenInvoiceItems(items)
	validRecords, recordWarnings := match.ScreenPosRecords(candidates)

	groups := aggregate.Fold(validRecords, strat)
	result := match.New(opts).Run(validItems, groups)

	warnings := make([]string, 0, len(itemWarnings)+len(recordWarnings))
	warnings = append(warnings, itemWarnings...)
	warnings = append(warnings, recordWarnings...)

	return &model.ReconciliationResult{
		Matched:     result.Matched,
		InvoiceOnly: result.InvoiceOnly,
		PosOnly:     result.PosOnly,
		Summary:     summary.Build(result, len(validItems), len(validRecords)),
		Warnings:    warnings,
	}, nil
}
