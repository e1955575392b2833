package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps run history in a local SQLite database.
// WAL mode so a reader never blocks the recording path.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the history database under stateDir.
func NewSQLiteStore(stateDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(stateDir, "history.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			exit_code   INTEGER NOT NULL,
			success     INTEGER NOT NULL,
			stdout      TEXT,
			stderr      TEXT,
			error       TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sync_runs table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// RecordRun inserts one run.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (run_id, started_at, duration_ms, exit_code, success, stdout, stderr, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC(), run.DurationMS, run.ExitCode,
		run.Success, clip(run.Stdout), clip(run.Stderr), run.Error,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, duration_ms, exit_code, success, stdout, stderr, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.DurationMS, &r.ExitCode,
			&r.Success, &r.Stdout, &r.Stderr, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}
