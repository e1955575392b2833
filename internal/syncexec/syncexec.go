// Package syncexec runs the external sync script with a bounded timeout,
// capturing its output.
//
// The child process is always reaped: the context deadline kills it and
// WaitDelay bounds how long we wait for its pipes to drain afterwards,
// so the timeout path cannot leak the process or its file handles.
package syncexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single sync invocation.
const DefaultTimeout = 120 * time.Second

// DefaultMaxOutput caps captured stdout/stderr, each.
const DefaultMaxOutput = 1 << 20 // 1 MiB

// Executor invokes the sync script as `<script> sync`.
type Executor struct {
	Script    string        // path to the sync executable
	Timeout   time.Duration // zero means DefaultTimeout
	MaxOutput int           // bytes per stream, zero means DefaultMaxOutput
}

// Result holds the outcome of one sync invocation.
type Result struct {
	RunID     string        // unique identifier for this run
	Success   bool          // exit code was zero
	ExitCode  int           // process exit code
	Stdout    string        // captured stdout (may be truncated)
	Stderr    string        // captured stderr (may be truncated)
	Duration  time.Duration // wall time of the invocation
	Truncated bool          // output exceeded the cap
}

// Run executes the sync script once. A non-zero exit code is reported in
// the Result, not as an error; errors mean the script could not be run
// at all (missing binary, permission, timeout).
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	if e.Script == "" {
		return nil, fmt.Errorf("sync script path not configured")
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := e.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runID := uuid.New().String()

	cmd := exec.CommandContext(ctx, e.Script, "sync")
	cmd.WaitDelay = 5 * time.Second

	stdout := &limitWriter{limit: maxOutput}
	stderr := &limitWriter{limit: maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("sync timed out after %s", timeout)
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("executing %s: %w", e.Script, runErr)
		}
	}

	return &Result{
		RunID:     runID,
		Success:   exitCode == 0,
		ExitCode:  exitCode,
		Stdout:    stdout.buf.String(),
		Stderr:    stderr.buf.String(),
		Duration:  elapsed,
		Truncated: stdout.truncated || stderr.truncated,
	}, nil
}

// limitWriter writes up to limit bytes, then silently discards the rest
// and marks itself truncated. It never reports a short write, so the
// child's pipe copier keeps draining.
type limitWriter struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.truncated = true
		return len(p), nil // discard
	}
	if len(p) > remaining {
		w.truncated = true
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
