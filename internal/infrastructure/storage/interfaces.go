package storage

import (
	"context"
	"time"

	"github.com/reconware/pos-reconcile-backend/internal/application/reconcile"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// Repository defines the complete storage interface. It covers both engine
// collaborators: the read-only point-of-sale query layer and session
// persistence. Implementations can be swapped (SQLite, in-memory mock).
type Repository interface {
	PosRepository
	SessionRepository
	Close() error
}

// PosRepository is the transactional store side.
type PosRepository interface {
	// InsertPosRecords loads point-of-sale rows, replacing rows with the
	// same ID. Used by import tooling and tests; the engine never writes.
	InsertPosRecords(ctx context.Context, records []model.PosRecord) error

	// QueryCandidates returns non-voided rows in the date range, restricted
	// to the product categories relevant to the reconciliation type.
	QueryCandidates(ctx context.Context, recType model.ReconciliationType, start, end time.Time) ([]model.PosRecord, error)
}

// SessionRepository persists and reads back reconciliation sessions.
type SessionRepository interface {
	// SaveSession persists a session with its full line-level result.
	SaveSession(ctx context.Context, session *reconcile.Session) error

	// GetSession retrieves one session including its result partition.
	GetSession(ctx context.Context, id string) (*reconcile.Session, error)

	// ListSessions returns recent sessions, newest first, without line data.
	ListSessions(ctx context.Context, limit int) ([]SessionRow, error)

	// GetStats returns aggregate statistics across all stored sessions.
	GetStats(ctx context.Context) (*Stats, error)
}
