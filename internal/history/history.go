// Package history persists a log of sync invocations.
//
// Two backends exist: a local SQLite database under the state dir, and
// PostgreSQL for installations that already run one. History is
// optional; when disabled the webhook keeps no state at all.
package history

import (
	"context"
	"time"
)

// Run is one recorded sync invocation.
type Run struct {
	RunID      string
	StartedAt  time.Time
	DurationMS int64
	ExitCode   int
	Success    bool
	Stdout     string
	Stderr     string
	Error      string // non-empty when the script could not be run
}

// Store records and retrieves sync runs.
type Store interface {
	RecordRun(ctx context.Context, run Run) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	Close()
}

// historyKeep caps how much of each output stream is persisted per run.
const historyKeep = 16 * 1024

// clip keeps the tail of s, which is where a failing script's useful
// output usually is.
func clip(s string) string {
	if len(s) <= historyKeep {
		return s
	}
	return s[len(s)-historyKeep:]
}
