// Package config loads the synchook configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the webhook server configuration.
type Config struct {
	// Listener
	Port int `yaml:"port"`

	// Sync script
	SyncScript     string `yaml:"sync_script"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxOutputBytes int    `yaml:"max_output_bytes"`

	// Auth. Empty disables token checking.
	Token string `yaml:"token"`

	// Run history
	HistoryEnabled bool   `yaml:"history_enabled"`
	HistoryDB      string `yaml:"history_db"` // Postgres URL; empty = SQLite under StateDir

	// Paths
	StateDir string `yaml:"state_dir"`
}

// DefaultConfig returns a config with sane defaults.
func DefaultConfig() Config {
	return Config{
		Port:           9876,
		TimeoutSeconds: 120,
		MaxOutputBytes: 1 << 20,
		HistoryEnabled: false,
		StateDir:       "/var/lib/synchook",
	}
}

// LoadConfig loads configuration from a YAML file with env overrides.
// The caller runs Validate once any CLI overrides are merged in.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyEnv()

	return &cfg, nil
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SYNC_WEBHOOK_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("SYNCHOOK_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.HistoryDB = v
	}
}

// Validate checks required fields and clamps ranges.
func (c *Config) Validate() error {
	if c.SyncScript == "" {
		return fmt.Errorf("sync_script is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TimeoutSeconds < 1 {
		c.TimeoutSeconds = 1
	}
	if c.TimeoutSeconds > 3600 {
		c.TimeoutSeconds = 3600
	}
	if c.MaxOutputBytes < 1 {
		c.MaxOutputBytes = 1 << 20
	}
	return nil
}
