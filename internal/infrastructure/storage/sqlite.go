package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/reconware/pos-reconcile-backend/internal/application/reconcile"
	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// Storage provides SQLite access to the point-of-sale store and the
// reconciliation session history. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time checks that Storage serves both engine collaborator contracts.
var (
	_ Repository                  = (*Storage)(nil)
	_ reconcile.PosStore          = (*Storage)(nil)
	_ reconcile.SessionRepository = (*Storage)(nil)
)

// NewStorage creates a new storage instance with a SQLite database.
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// InsertPosRecords loads rows, replacing any existing row with the same ID.
func (s *Storage) InsertPosRecords(ctx context.Context, records []model.PosRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO pos_records
	(id, date, customer_name, product_name, product_category, quantity, total_amount, sku, voided)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		voided := 0
		if rec.Voided {
			voided = 1
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID,
			model.DateKey(rec.Date),
			rec.CustomerName,
			rec.ProductName,
			rec.ProductCategory,
			rec.Quantity,
			rec.TotalAmount.String(),
			rec.SKU,
			voided,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert pos record %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// QueryCandidates returns non-voided rows in the date range for the given
// reconciliation type. Category restriction is the store-side half of the
// type's business policy; the engine re-screens whatever comes back.
func (s *Storage) QueryCandidates(ctx context.Context, recType model.ReconciliationType, start, end time.Time) ([]model.PosRecord, error) {
	query := `
	SELECT id, date, customer_name, product_name, product_category, quantity, total_amount, sku, voided
	FROM pos_records
	WHERE voided = 0 AND date >= ? AND date <= ?`
	args := []any{model.DateKey(start), model.DateKey(end)}

	clause, clauseArgs := categoryClause(recType)
	if clause != "" {
		query += " AND " + clause
		args = append(args, clauseArgs...)
	}
	query += " ORDER BY date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.PosRecord
	for rows.Next() {
		var (
			rec     model.PosRecord
			dateStr string
			amount  string
			voided  int
		)
		if err := rows.Scan(&rec.ID, &dateStr, &rec.CustomerName, &rec.ProductName,
			&rec.ProductCategory, &rec.Quantity, &amount, &rec.SKU, &voided); err != nil {
			return nil, err
		}
		rec.Date, err = time.Parse(time.DateOnly, dateStr)
		if err != nil {
			return nil, fmt.Errorf("pos record %s has malformed date %q: %w", rec.ID, dateStr, err)
		}
		rec.TotalAmount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("pos record %s has malformed amount %q: %w", rec.ID, amount, err)
		}
		rec.Voided = voided != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// lessonCategoryLabels mirror the aggregation strategy's lesson labels: the
// store restricts lesson reconciliations to usage-billed products.
var lessonCategoryLabels = []string{"lesson", "class", "course", "tuition"}

func categoryClause(recType model.ReconciliationType) (string, []any) {
	switch recType {
	case model.TypeLessons:
		parts := make([]string, 0, len(lessonCategoryLabels))
		args := make([]any, 0, 2*len(lessonCategoryLabels))
		for _, label := range lessonCategoryLabels {
			parts = append(parts, "lower(product_category) LIKE ? OR lower(product_name) LIKE ?")
			pattern := "%" + label + "%"
			args = append(args, pattern, pattern)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args
	case model.TypeWholesale:
		return "lower(product_category) = ?", []any{"wholesale"}
	case model.TypeRetail:
		return "lower(product_category) != ?", []any{"wholesale"}
	default:
		return "", nil
	}
}

// SaveSession persists a session together with its line-level partition.
func (s *Storage) SaveSession(ctx context.Context, session *reconcile.Session) error {
	if session.Result == nil {
		return fmt.Errorf("session %s has no result to persist", session.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	sum := session.Result.Summary
	warningsJSON, _ := json.Marshal(session.Result.Warnings)

	if _, err := tx.ExecContext(ctx, `
	INSERT OR REPLACE INTO reconciliation_sessions
	(id, recon_type, range_start, range_end, created_by, state, created_at, completed_at,
	 invoice_count, pos_count, matched_count, match_rate,
	 total_invoice_amount, total_pos_amount, variance_amount, variance_percent, warnings_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		string(session.Type),
		model.DateKey(session.RangeStart),
		model.DateKey(session.RangeEnd),
		session.CreatedBy,
		string(session.State),
		session.CreatedAt,
		nullableTime(session.CompletedAt),
		sum.InvoiceCount,
		sum.PosCount,
		sum.MatchedCount,
		sum.MatchRate,
		sum.TotalInvoiceAmount.String(),
		sum.TotalPosAmount.String(),
		sum.VarianceAmount.String(),
		sum.VariancePercent.String(),
		string(warningsJSON),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert session %s: %w", session.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO session_lines
	(session_id, seq, line_kind, tier, confidence, amount_diff, quantity_diff, name_similarity, invoice_json, pos_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, pair := range session.Result.Matched {
		invoiceJSON, _ := json.Marshal(pair.Invoice)
		posJSON, _ := json.Marshal(pair.Pos)
		if _, err := stmt.ExecContext(ctx, session.ID, i, lineMatched, string(pair.Tier),
			pair.Confidence, pair.Variance.AmountDiff.String(), pair.Variance.QuantityDiff,
			pair.Variance.NameSimilarity, string(invoiceJSON), string(posJSON)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert matched line: %w", err)
		}
	}
	for i, item := range session.Result.InvoiceOnly {
		invoiceJSON, _ := json.Marshal(item)
		if _, err := stmt.ExecContext(ctx, session.ID, i, lineInvoiceOnly, "",
			0.0, "0", 0, 0.0, string(invoiceJSON), nil); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert invoice-only line: %w", err)
		}
	}
	for i, g := range session.Result.PosOnly {
		posJSON, _ := json.Marshal(g)
		if _, err := stmt.ExecContext(ctx, session.ID, i, linePosOnly, "",
			0.0, "0", 0, 0.0, nil, string(posJSON)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert pos-only line: %w", err)
		}
	}

	return tx.Commit()
}

// GetSession retrieves one session including its full result partition.
func (s *Storage) GetSession(ctx context.Context, id string) (*reconcile.Session, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, recon_type, range_start, range_end, created_by, state, created_at, completed_at,
	       invoice_count, pos_count, matched_count, match_rate,
	       total_invoice_amount, total_pos_amount, variance_amount, variance_percent, warnings_json
	FROM reconciliation_sessions WHERE id = ?
	`, id)

	session := &reconcile.Session{Result: &model.ReconciliationResult{}}
	var completedAt sql.NullTime
	var rangeStart, rangeEnd string
	var totalInvoice, totalPos, varianceAmount, variancePercent, warningsJSON string
	err := row.Scan(&session.ID, &session.Type, &rangeStart, &rangeEnd, &session.CreatedBy,
		&session.State, &session.CreatedAt, &completedAt,
		&session.Result.Summary.InvoiceCount, &session.Result.Summary.PosCount,
		&session.Result.Summary.MatchedCount, &session.Result.Summary.MatchRate,
		&totalInvoice, &totalPos, &varianceAmount, &variancePercent, &warningsJSON)
	if err != nil {
		return nil, err
	}

	if session.RangeStart, err = time.Parse(time.DateOnly, rangeStart); err != nil {
		return nil, err
	}
	if session.RangeEnd, err = time.Parse(time.DateOnly, rangeEnd); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		session.CompletedAt = completedAt.Time
	}
	sum := &session.Result.Summary
	if sum.TotalInvoiceAmount, err = decimal.NewFromString(totalInvoice); err != nil {
		return nil, err
	}
	if sum.TotalPosAmount, err = decimal.NewFromString(totalPos); err != nil {
		return nil, err
	}
	if sum.VarianceAmount, err = decimal.NewFromString(varianceAmount); err != nil {
		return nil, err
	}
	if sum.VariancePercent, err = decimal.NewFromString(variancePercent); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(warningsJSON), &session.Result.Warnings); err != nil {
		return nil, fmt.Errorf("session %s has malformed warnings: %w", id, err)
	}

	if err := s.loadLines(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Storage) loadLines(ctx context.Context, session *reconcile.Session) error {
	rows, err := s.db.QueryContext(ctx, `
	SELECT line_kind, tier, confidence, amount_diff, quantity_diff, name_similarity, invoice_json, pos_json
	FROM session_lines WHERE session_id = ? ORDER BY line_kind, seq
	`, session.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind, tier             string
			confidence, similarity float64
			amountDiff             string
			quantityDiff           int
			invoiceJSON, posJSON   sql.NullString
		)
		if err := rows.Scan(&kind, &tier, &confidence, &amountDiff, &quantityDiff,
			&similarity, &invoiceJSON, &posJSON); err != nil {
			return err
		}

		switch kind {
		case lineMatched:
			pair := model.MatchedPair{
				Tier:       model.MatchTier(tier),
				Confidence: confidence,
				Variance: model.Variance{
					QuantityDiff:   quantityDiff,
					NameSimilarity: similarity,
				},
			}
			if pair.Variance.AmountDiff, err = decimal.NewFromString(amountDiff); err != nil {
				return err
			}
			if invoiceJSON.Valid {
				if err := json.Unmarshal([]byte(invoiceJSON.String), &pair.Invoice); err != nil {
					return fmt.Errorf("session %s has malformed matched invoice line: %w", session.ID, err)
				}
			}
			if posJSON.Valid {
				if err := json.Unmarshal([]byte(posJSON.String), &pair.Pos); err != nil {
					return fmt.Errorf("session %s has malformed matched pos line: %w", session.ID, err)
				}
			}
			session.Result.Matched = append(session.Result.Matched, pair)
		case lineInvoiceOnly:
			var item model.InvoiceItem
			if invoiceJSON.Valid {
				if err := json.Unmarshal([]byte(invoiceJSON.String), &item); err != nil {
					return fmt.Errorf("session %s has malformed invoice-only line: %w", session.ID, err)
				}
			}
			session.Result.InvoiceOnly = append(session.Result.InvoiceOnly, item)
		case linePosOnly:
			var g model.AggregatedPosGroup
			if posJSON.Valid {
				if err := json.Unmarshal([]byte(posJSON.String), &g); err != nil {
					return fmt.Errorf("session %s has malformed pos-only line: %w", session.ID, err)
				}
			}
			session.Result.PosOnly = append(session.Result.PosOnly, g)
		}
	}
	return rows.Err()
}

// ListSessions returns recent sessions, newest first.
func (s *Storage) ListSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, recon_type, range_start, range_end, created_by, state, created_at,
	       invoice_count, pos_count, matched_count, match_rate, variance_amount, variance_percent
	FROM reconciliation_sessions ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SessionRow
	for rows.Next() {
		var r SessionRow
		var rangeStart, rangeEnd, variance, variancePct string
		if err := rows.Scan(&r.ID, &r.Type, &rangeStart, &rangeEnd, &r.CreatedBy, &r.State,
			&r.CreatedAt, &r.InvoiceCount, &r.PosCount, &r.MatchedCount, &r.MatchRate,
			&variance, &variancePct); err != nil {
			return nil, err
		}
		if r.RangeStart, err = time.Parse(time.DateOnly, rangeStart); err != nil {
			return nil, err
		}
		if r.RangeEnd, err = time.Parse(time.DateOnly, rangeEnd); err != nil {
			return nil, err
		}
		if r.VarianceAmount, err = decimal.NewFromString(variance); err != nil {
			return nil, err
		}
		if r.VariancePercent, err = decimal.NewFromString(variancePct); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetStats returns aggregate statistics across all stored sessions.
func (s *Storage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{SessionsByType: make(map[model.ReconciliationType]int)}

	row := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN state = 'completed' THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN state = 'failed' THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(matched_count), 0),
	       COALESCE(AVG(CASE WHEN state = 'completed' THEN match_rate END), 0)
	FROM reconciliation_sessions
	`)
	if err := row.Scan(&stats.TotalSessions, &stats.CompletedCount, &stats.FailedCount,
		&stats.TotalMatched, &stats.AverageMatchRate); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT recon_type, COUNT(*) FROM reconciliation_sessions GROUP BY recon_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			recType string
			count   int
		)
		if err := rows.Scan(&recType, &count); err != nil {
			return nil, err
		}
		stats.SessionsByType[model.ReconciliationType(recType)] = count
	}
	return stats, rows.Err()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
