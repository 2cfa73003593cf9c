package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// State is a session's lifecycle state. Terminal states are immutable;
// retrying means constructing a new session.
type State string

const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Session is one reconciliation run with its identity and outcome.
type Session struct {
	ID          string                      `json:"id"`
	Type        model.ReconciliationType    `json:"type"`
	RangeStart  time.Time                   `json:"range_start"`
	RangeEnd    time.Time                   `json:"range_end"`
	CreatedBy   string                      `json:"created_by,omitempty"`
	State       State                       `json:"state"`
	CreatedAt   time.Time                   `json:"created_at"`
	CompletedAt time.Time                   `json:"completed_at,omitzero"`
	Result      *model.ReconciliationResult `json:"result,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

// PosStore is the read-only transactional store collaborator. It returns
// candidate rows for a type and date range, already filtered to exclude
// voided rows; the engine re-checks that flag regardless.
type PosStore interface {
	QueryCandidates(ctx context.Context, recType model.ReconciliationType, start, end time.Time) ([]model.PosRecord, error)
}

// SessionRepository is the persistence collaborator for completed runs.
type SessionRepository interface {
	SaveSession(ctx context.Context, session *Session) error
}

// RunInput carries everything one session needs.
type RunInput struct {
	Type         model.ReconciliationType
	RangeStart   time.Time
	RangeEnd     time.Time
	CreatedBy    string
	InvoiceItems []model.InvoiceItem
	// IngestWarnings are parse warnings from the file ingestion collaborator,
	// carried through into the result for reporting.
	IngestWarnings []string
	Options        model.Options
}

// Orchestrator runs sessions against the two collaborators.
type Orchestrator struct {
	store    PosStore
	sessions SessionRepository
	logger   *slog.Logger
}

// NewOrchestrator creates a session orchestrator. The repository may be nil
// for dry runs that should not be persisted.
func NewOrchestrator(store PosStore, sessions SessionRepository, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, sessions: sessions, logger: logger}
}

// Run executes one full session: validate, query the store, match, persist.
// Configuration problems are rejected before the session enters Running and
// return an error with no session. Collaborator failures return the session
// in the Failed state alongside the error; zero matches is a normal
// Completed outcome.
func (o *Orchestrator) Run(ctx context.Context, in RunInput) (*Session, error) {
	if err := o.validate(in); err != nil {
		return nil, err
	}

	session := &Session{
		ID:         uuid.NewString(),
		Type:       in.Type,
		RangeStart: model.DateOnly(in.RangeStart),
		RangeEnd:   model.DateOnly(in.RangeEnd),
		CreatedBy:  in.CreatedBy,
		State:      StateCreated,
		CreatedAt:  time.Now().UTC(),
	}

	session.State = StateRunning
	o.logger.Info("reconciliation session started",
		"session_id", session.ID,
		"type", in.Type,
		"range_start", model.DateKey(session.RangeStart),
		"range_end", model.DateKey(session.RangeEnd),
		"invoice_items", len(in.InvoiceItems))

	candidates, err := o.store.QueryCandidates(ctx, in.Type, session.RangeStart, session.RangeEnd)
	if err != nil {
		return o.fail(session, fmt.Errorf("%w: pos store query: %v", model.ErrCollaboratorUnavailable, err))
	}

	result, err := Reconcile(in.InvoiceItems, candidates, in.Type, in.Options)
	if err != nil {
		return o.fail(session, err)
	}
	result.Warnings = append(in.IngestWarnings, result.Warnings...)
	session.Result = result

	// The terminal state must be set before persisting so the stored row
	// carries it; a failed save demotes the session to Failed.
	session.State = StateCompleted
	session.CompletedAt = time.Now().UTC()

	if o.sessions != nil {
		if err := o.sessions.SaveSession(ctx, session); err != nil {
			return o.fail(session, fmt.Errorf("%w: session persistence: %v", model.ErrCollaboratorUnavailable, err))
		}
	}

	o.logger.Info("reconciliation session completed",
		"session_id", session.ID,
		"matched", result.Summary.MatchedCount,
		"match_rate", result.Summary.MatchRate,
		"invoice_only", len(result.InvoiceOnly),
		"pos_only", len(result.PosOnly),
		"warnings", len(result.Warnings))

	return session, nil
}

func (o *Orchestrator) validate(in RunInput) error {
	if in.Type == "" {
		return fmt.Errorf("%w: reconciliation type is required", model.ErrInvalidConfiguration)
	}
	if _, err := StrategyFor(in.Type); err != nil {
		return err
	}
	if in.RangeStart.IsZero() || in.RangeEnd.IsZero() {
		return fmt.Errorf("%w: date range is required", model.ErrInvalidConfiguration)
	}
	if in.RangeEnd.Before(in.RangeStart) {
		return fmt.Errorf("%w: range end %s before range start %s",
			model.ErrInvalidConfiguration, model.DateKey(in.RangeEnd), model.DateKey(in.RangeStart))
	}
	return in.Options.Validate()
}

func (o *Orchestrator) fail(session *Session, err error) (*Session, error) {
	session.State = StateFailed
	session.Error = err.Error()
	session.CompletedAt = time.Now().UTC()
	o.logger.Error("reconciliation session failed", "session_id", session.ID, "error", err)
	return session, err
}
