package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/reconware/pos-reconcile-backend/internal/application/reconcile"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
	"github.com/reconware/pos-reconcile-backend/internal/domain/normalize"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/config"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/logging"
	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/storage"
	"github.com/reconware/pos-reconcile-backend/internal/ingest"
)

var hundred = decimal.NewFromInt(100)

// RunReconcile executes one reconciliation session from the command line.
func RunReconcile(cfg *config.Config, flags *RunFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "reconcile")

	if flags.InvoicePath == "" {
		return fmt.Errorf("-invoice is required")
	}
	start, err := normalize.Date(flags.RangeStart)
	if err != nil {
		return fmt.Errorf("-start: %w", err)
	}
	end, err := normalize.Date(flags.RangeEnd)
	if err != nil {
		return fmt.Errorf("-end: %w", err)
	}

	items, warnings, err := ingest.ReadInvoiceFile(flags.InvoicePath)
	if err != nil {
		return err
	}
	logger.Info("invoice file parsed", "items", len(items), "warnings", len(warnings))

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var sessions reconcile.SessionRepository
	if !flags.DryRun {
		sessions = store
	}
	orchestrator := reconcile.NewOrchestrator(store, sessions, logger)

	session, err := orchestrator.Run(context.Background(), reconcile.RunInput{
		Type:           model.ReconciliationType(flags.Type),
		RangeStart:     start,
		RangeEnd:       end,
		CreatedBy:      flags.CreatedBy,
		InvoiceItems:   items,
		IngestWarnings: warnings,
		Options:        cfg.Options(),
	})
	if err != nil {
		return err
	}

	printSummary(session)
	return nil
}

func printSummary(session *reconcile.Session) {
	sum := session.Result.Summary

	fmt.Printf("Session %s (%s) %s → %s\n",
		session.ID, session.Type, model.DateKey(session.RangeStart), model.DateKey(session.RangeEnd))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Invoice items:\t%d\n", sum.InvoiceCount)
	fmt.Fprintf(w, "POS records:\t%d\n", sum.PosCount)
	fmt.Fprintf(w, "Matched:\t%d (%.1f%%)\n", sum.MatchedCount, sum.MatchRate*100)
	fmt.Fprintf(w, "Invoice only:\t%d\n", len(session.Result.InvoiceOnly))
	fmt.Fprintf(w, "POS only:\t%d\n", len(session.Result.PosOnly))
	fmt.Fprintf(w, "Invoice total:\t%s\n", sum.TotalInvoiceAmount)
	fmt.Fprintf(w, "POS total:\t%s\n", sum.TotalPosAmount)
	fmt.Fprintf(w, "Variance:\t%s (%s%%)\n", sum.VarianceAmount, sum.VariancePercent.Mul(hundred))
	_ = w.Flush()

	for _, warning := range session.Result.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
}
