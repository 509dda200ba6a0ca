package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// History manages curation-run records in SQLite
type History struct {
	db *sql.DB
}

// NewHistory opens (and if needed initializes) the run-history database
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			action TEXT NOT NULL,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			people_count INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			warning_count INTEGER NOT NULL,
			duration_seconds REAL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_action_created
		ON runs(action, created_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Record stores a curation run. A run_id is assigned when the record does
// not carry one. Returns the database row ID.
func (h *History) Record(ctx context.Context, record *RunRecord) (int64, error) {
	if record.RunID == "" {
		record.RunID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, action, source, status, people_count, error_count,
		 warning_count, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.RunID,
		record.Action,
		record.Source,
		record.Status,
		record.PeopleCount,
		record.ErrorCount,
		record.WarningCount,
		record.DurationSeconds,
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// Latest returns the most recent run, or nil when none are recorded
func (h *History) Latest(ctx context.Context) (*RunRecord, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, run_id, action, source, status, people_count, error_count,
		       warning_count, duration_seconds, created_at
		FROM runs
		ORDER BY id DESC
		LIMIT 1
	`)

	record, err := scanRunRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	return record, nil
}

// Recent returns up to limit runs, newest first
func (h *History) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	return h.queryRuns(ctx, `
		SELECT id, run_id, action, source, status, people_count, error_count,
		       warning_count, duration_seconds, created_at
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
}

// RecentByAction returns up to limit runs of one action, newest first
func (h *History) RecentByAction(ctx context.Context, action string, limit int) ([]RunRecord, error) {
	return h.queryRuns(ctx, `
		SELECT id, run_id, action, source, status, people_count, error_count,
		       warning_count, duration_seconds, created_at
		FROM runs
		WHERE action = ?
		ORDER BY id DESC
		LIMIT ?
	`, action, limit)
}

func (h *History) queryRuns(ctx context.Context, query string, args ...any) ([]RunRecord, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRunRecord(s scanner) (*RunRecord, error) {
	var record RunRecord
	var createdAtStr string

	err := s.Scan(
		&record.ID,
		&record.RunID,
		&record.Action,
		&record.Source,
		&record.Status,
		&record.PeopleCount,
		&record.ErrorCount,
		&record.WarningCount,
		&record.DurationSeconds,
		&createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	record.CreatedAt = createdAt

	return &record, nil
}
