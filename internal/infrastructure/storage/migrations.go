package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration.
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order.
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "pos_records",
		Up:      migration001PosRecords,
	},
	{
		Version: 2,
		Name:    "session_tables",
		Up:      migration002SessionTables,
	},
}

// runMigrations executes all pending migrations.
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			migration.Version, migration.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (s *Storage) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func migration001PosRecords(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS pos_records (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		product_name TEXT NOT NULL,
		product_category TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		total_amount TEXT NOT NULL,
		sku TEXT NOT NULL DEFAULT '',
		voided INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_pos_records_date ON pos_records(date);
	CREATE INDEX IF NOT EXISTS idx_pos_records_category ON pos_records(product_category);
	`)
	return err
}

func migration002SessionTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS reconciliation_sessions (
		id TEXT PRIMARY KEY,
		recon_type TEXT NOT NULL,
		range_start TEXT NOT NULL,
		range_end TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		completed_at DATETIME,
		invoice_count INTEGER NOT NULL DEFAULT 0,
		pos_count INTEGER NOT NULL DEFAULT 0,
		matched_count INTEGER NOT NULL DEFAULT 0,
		match_rate REAL NOT NULL DEFAULT 0,
		total_invoice_amount TEXT NOT NULL DEFAULT '0',
		total_pos_amount TEXT NOT NULL DEFAULT '0',
		variance_amount TEXT NOT NULL DEFAULT '0',
		variance_percent TEXT NOT NULL DEFAULT '0',
		warnings_json TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON reconciliation_sessions(created_at);

	CREATE TABLE IF NOT EXISTS session_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES reconciliation_sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		line_kind TEXT NOT NULL,
		tier TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL DEFAULT 0,
		amount_diff TEXT NOT NULL DEFAULT '0',
		quantity_diff INTEGER NOT NULL DEFAULT 0,
		name_similarity REAL NOT NULL DEFAULT 0,
		invoice_json TEXT,
		pos_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_session_lines_session ON session_lines(session_id);
	`)
	return err
}
