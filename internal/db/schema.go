package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete schema for a fresh history database.
// It reflects the state after all migrations.
//
// This is the single source of truth for the schema: repository tests load
// it through GetSchemaSQL() instead of declaring their own tables, so a
// column referenced by repository code but missing here fails immediately
// with "no such column".
//
// When adding columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Runs (one reconciliation pass)
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL CHECK(status IN ('running', 'success', 'failure')) DEFAULT 'running',
	dry_run INTEGER NOT NULL DEFAULT 0,
	epic_status TEXT,
	epic_count INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

-- Run categories (outcome of one ticket-type category within a run)
CREATE TABLE IF NOT EXISTS run_categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	category TEXT NOT NULL,
	outcome TEXT NOT NULL CHECK(outcome IN ('completed', 'skipped_no_data', 'skipped_config_missing', 'skipped_epic_failure', 'failed')),
	reason TEXT,
	open_count INTEGER NOT NULL DEFAULT 0,
	remote_count INTEGER NOT NULL DEFAULT 0,
	orphan_count INTEGER NOT NULL DEFAULT 0,
	marked_count INTEGER NOT NULL DEFAULT 0,
	mark_errors INTEGER NOT NULL DEFAULT 0,
	batch_count INTEGER NOT NULL DEFAULT 0,
	oldest TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE,
	UNIQUE(run_id, category)
);

-- Run marks (one orphan marking attempt)
CREATE TABLE IF NOT EXISTS run_marks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	category TEXT NOT NULL,
	ticket_number TEXT NOT NULL,
	document_id TEXT,
	index_name TEXT,
	result TEXT NOT NULL CHECK(result IN ('marked', 'not_found', 'type_unknown', 'error', 'dry_run')),
	detail TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_run_marks_run ON run_marks(run_id);
CREATE INDEX IF NOT EXISTS idx_run_marks_ticket ON run_marks(ticket_number);
`

// InitSchema brings the database at conn up to the current schema.
func InitSchema(conn *sql.DB) error {
	var tableCount int
	err := conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount > 0 {
		return RunMigrations(conn)
	}

	// Fresh install: create the modern schema directly and mark every
	// migration as applied.
	if _, err := conn.Exec(SchemaSQL); err != nil {
		return err
	}
	if err := ensureVersionTable(conn); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
