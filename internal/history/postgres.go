package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps run history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and bootstraps the schema.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sync_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL,
			exit_code   INTEGER NOT NULL,
			success     BOOLEAN NOT NULL,
			stdout      TEXT,
			stderr      TEXT,
			error       TEXT
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create sync_runs table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// RecordRun inserts one run.
func (s *PostgresStore) RecordRun(ctx context.Context, run Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_runs (run_id, started_at, duration_ms, exit_code, success, stdout, stderr, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.RunID, run.StartedAt.UTC(), run.DurationMS, run.ExitCode,
		run.Success, clip(run.Stdout), clip(run.Stderr), run.Error,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, started_at, duration_ms, exit_code, success, stdout, stderr, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
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

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
