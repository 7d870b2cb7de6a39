// Package journal records analysis runs in a SQLite database.
//
// The journal keeps run metadata only: what was analysed, how, and whether
// it succeeded. Computed fields are never persisted.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one journaled analysis request.
type Run struct {
	ID              int64         `json:"id"`
	StartedAt       time.Time     `json:"started_at"`
	Root            string        `json:"root"`
	Step            int           `json:"step"`
	Count           int           `json:"count"`
	Stride          int           `json:"stride"`
	Field           string        `json:"field"`
	FieldIndex      int           `json:"field_index"`
	Kind            string        `json:"kind"`
	Members         int           `json:"members"`
	Voxels          int           `json:"voxels"`
	Workers         int           `json:"workers"`
	Duration        time.Duration `json:"duration_ns"`
	ComponentCounts []int         `json:"component_counts,omitempty"`
	Status          string        `json:"status"`
	Error           string        `json:"error,omitempty"`
}

// Journal is a SQLite-backed run journal. It is safe for concurrent use.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal database at path, creating parent
// directories as needed.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, path: path}, nil
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// Record stores run and returns its assigned ID.
func (j *Journal) Record(ctx context.Context, run Run) (int64, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusOK
	}
	var counts sql.NullString
	if run.ComponentCounts != nil {
		data, err := json.Marshal(run.ComponentCounts)
		if err != nil {
			return 0, fmt.Errorf("encoding component counts: %w", err)
		}
		counts = sql.NullString{String: string(data), Valid: true}
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (started_at, root, step, count, stride, field, field_index, kind,
			members, voxels, workers, duration_ms, component_counts, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.Root,
		run.Step, run.Count, run.Stride, run.Field, run.FieldIndex, run.Kind,
		run.Members, run.Voxels, run.Workers, run.Duration.Milliseconds(),
		counts, run.Status, nullString(run.Error))
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return res.LastInsertId()
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (j *Journal) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, root, step, count, stride, field, field_index, kind,
			members, voxels, workers, duration_ms, component_counts, status, error
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			started    string
			durationMS int64
			counts     sql.NullString
			errText    sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &r.Root, &r.Step, &r.Count, &r.Stride,
			&r.Field, &r.FieldIndex, &r.Kind, &r.Members, &r.Voxels, &r.Workers,
			&durationMS, &counts, &r.Status, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %d: bad started_at %q: %w", r.ID, started, err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if counts.Valid {
			if err := json.Unmarshal([]byte(counts.String), &r.ComponentCounts); err != nil {
				return nil, fmt.Errorf("run %d: bad component counts: %w", r.ID, err)
			}
		}
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
