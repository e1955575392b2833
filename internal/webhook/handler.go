package webhook

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/osiriscare/synchook/internal/history"
	"github.com/osiriscare/synchook/internal/syncexec"
)

// SyncExecutor runs one sync invocation. *syncexec.Executor satisfies
// it; tests substitute a spy.
type SyncExecutor interface {
	Run(ctx context.Context) (*syncexec.Result, error)
}

// Handler serves /health and /sync.
type Handler struct {
	exec  SyncExecutor
	token string        // if non-empty, /sync requires ?token= to match
	store history.Store // nil disables run history
}

// NewHandler creates a webhook handler. If token is non-empty, /sync
// requests must carry a matching token query parameter. store may be
// nil, in which case runs are not recorded.
func NewHandler(exec SyncExecutor, token string, store history.Store) *Handler {
	return &Handler{exec: exec, token: token, store: store}
}

// ServeHTTP routes the two known endpoints. Anything else, including a
// known path with the wrong method, is a 404.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		h.handleHealth(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/sync":
		h.handleSync(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if h.token != "" {
		if r.URL.Query().Get("token") != h.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "invalid or missing token",
			})
			return
		}
	}

	start := time.Now()

	// The run is bounded by the executor's own timeout, not the request
	// context: a client disconnect must not kill a sync in flight.
	res, err := h.exec.Run(context.Background())
	if err != nil {
		log.Printf("[webhook] sync failed: %v", err)
		h.record(history.Run{
			StartedAt:  start,
			DurationMS: time.Since(start).Milliseconds(),
			ExitCode:   -1,
			Error:      err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}

	log.Printf("[webhook] sync run %s: exit=%d in %v", res.RunID, res.ExitCode, res.Duration)
	h.record(history.Run{
		RunID:      res.RunID,
		StartedAt:  start,
		DurationMS: res.Duration.Milliseconds(),
		ExitCode:   res.ExitCode,
		Success:    res.Success,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
	})

	writeJSON(w, http.StatusOK, SyncResponse{
		Success: res.Success,
		Stdout:  res.Stdout,
		Stderr:  res.Stderr,
	})
}

// record persists a run when history is enabled. Store failures are
// logged, never surfaced to the caller.
func (h *Handler) record(run history.Run) {
	if h.store == nil {
		return
	}
	if run.RunID == "" {
		// Failed spawns never get an executor-assigned ID.
		run.RunID = uuid.New().String()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.store.RecordRun(ctx, run); err != nil {
		log.Printf("[history] %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
