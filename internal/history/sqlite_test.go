package history

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestSQLiteRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	runs := []Run{
		{RunID: "run-1", StartedAt: base, DurationMS: 900, ExitCode: 0, Success: true, Stdout: "done"},
		{RunID: "run-2", StartedAt: base.Add(time.Minute), DurationMS: 1200, ExitCode: 1, Success: false, Stderr: "conflict"},
		{RunID: "run-3", StartedAt: base.Add(2 * time.Minute), DurationMS: 40, ExitCode: -1, Error: "sync timed out after 2m0s"},
	}
	for _, r := range runs {
		if err := store.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun(%s): %v", r.RunID, err)
		}
	}

	got, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d runs, want 3", len(got))
	}
	// Newest first.
	if got[0].RunID != "run-3" || got[2].RunID != "run-1" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].RunID, got[1].RunID, got[2].RunID)
	}
	if got[1].Success || got[1].Stderr != "conflict" {
		t.Errorf("run-2 round-trip mismatch: %+v", got[1])
	}
	if got[0].Error == "" {
		t.Error("run-3 error text was not persisted")
	}
}

func TestSQLiteRecentLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run := Run{
			RunID:     string(rune('a' + i)),
			StartedAt: time.Now().Add(time.Duration(i) * time.Second),
			Success:   true,
		}
		if err := store.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	got, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
}

func TestSQLiteClipsLargeOutput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	big := strings.Repeat("x", historyKeep*2)
	run := Run{RunID: "big", StartedAt: time.Now(), Success: true, Stdout: big}
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := store.RecentRuns(ctx, 1)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got[0].Stdout) > historyKeep {
		t.Errorf("stored stdout length = %d, want <= %d", len(got[0].Stdout), historyKeep)
	}
}
