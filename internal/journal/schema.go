package journal

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the run journal.
const schemaV1 = `
-- One row per analysis request. Field values are never stored.
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    root TEXT NOT NULL,

    -- Selection
    step INTEGER NOT NULL,
    count INTEGER NOT NULL,
    stride INTEGER NOT NULL,
    field TEXT NOT NULL,
    field_index INTEGER NOT NULL,
    kind TEXT NOT NULL,

    -- Outcome
    members INTEGER DEFAULT 0,
    voxels INTEGER DEFAULT 0,
    workers INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    component_counts TEXT,  -- JSON array, mixture runs only
    status TEXT NOT NULL,   -- 'ok', 'error'
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// InitSchema creates the runs table on a fresh database. The version is
// kept in SQLite's user_version, so a journal written by a newer build is
// rejected rather than misread.
func InitSchema(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	switch {
	case version == SchemaVersion:
		return nil
	case version > SchemaVersion:
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, SchemaVersion)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}
