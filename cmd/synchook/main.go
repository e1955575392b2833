// Sync-trigger webhook server.
//
// Listens for POST /sync from CI (GitHub Actions) and runs the
// configured sync script, returning its captured output as JSON.
// GET /health answers "ok" for load balancer checks.
//
// Usage:
//
//	synchook --script /usr/local/bin/repo-sync.sh [port]
//	synchook --config /etc/synchook/config.yaml
//
// Set SYNC_WEBHOOK_TOKEN to require ?token= on /sync; leave it unset
// to disable authentication.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/osiriscare/synchook/internal/config"
	"github.com/osiriscare/synchook/internal/history"
	"github.com/osiriscare/synchook/internal/syncexec"
	"github.com/osiriscare/synchook/internal/webhook"
)

var (
	flagConfig  = flag.String("config", "", "Path to YAML config file")
	flagPort    = flag.Int("port", 0, "HTTP listen port (overrides config file and positional port)")
	flagScript  = flag.String("script", "", "Path to the sync script")
	flagTimeout = flag.Int("timeout", 0, "Sync timeout in seconds")
	flagDB      = flag.String("db", "", "PostgreSQL URL for run history (or DATABASE_URL env); enables history")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	executor := &syncexec.Executor{
		Script:    cfg.SyncScript,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxOutput: cfg.MaxOutputBytes,
	}

	store, err := openHistory(cfg)
	if err != nil {
		log.Fatalf("History store error: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	handler := webhook.NewHandler(executor, cfg.Token, store)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Write timeout must outlast the sync script.
		WriteTimeout: time.Duration(cfg.TimeoutSeconds)*time.Second + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Shutdown signal: %v", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	authMode := "disabled"
	if cfg.Token != "" {
		authMode = "enabled"
	}
	log.Printf("Synchook listening on :%d (token auth %s, script %s)", cfg.Port, authMode, cfg.SyncScript)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}

// loadConfig merges the config file, env overrides, the optional
// positional port argument, and explicit flags (highest precedence).
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if *flagConfig != "" {
		loaded, err := config.LoadConfig(*flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := config.DefaultConfig()
		def.ApplyEnv()
		cfg = &def
	}

	if flag.NArg() > 0 {
		port, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			return nil, fmt.Errorf("invalid port argument %q", flag.Arg(0))
		}
		cfg.Port = port
	}
	if *flagPort != 0 {
		cfg.Port = *flagPort
	}
	if *flagScript != "" {
		cfg.SyncScript = *flagScript
	}
	if *flagTimeout != 0 {
		cfg.TimeoutSeconds = *flagTimeout
	}
	if *flagDB != "" {
		cfg.HistoryDB = *flagDB
		cfg.HistoryEnabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openHistory opens the configured history store, or returns nil when
// history is disabled.
func openHistory(cfg *config.Config) (history.Store, error) {
	if !cfg.HistoryEnabled {
		return nil, nil
	}

	if cfg.HistoryDB != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := history.NewPostgresStore(ctx, cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		log.Println("Run history: PostgreSQL")
		return store, nil
	}

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	store, err := history.NewSQLiteStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	log.Printf("Run history: SQLite in %s", cfg.StateDir)
	return store, nil
}
