// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All loading functions accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error kinds.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// BoardSize bounds every leaderboard.
	BoardSize int `koanf:"board_size"`

	// GuestPrefix prefixes synthesized guest display names.
	GuestPrefix string `koanf:"guest_prefix"`

	// AdminToken guards maintenance endpoints. Empty disables them.
	AdminToken string `koanf:"admin_token"`

	// StatsQueueSize bounds the in-memory answer stat queue.
	StatsQueueSize int `koanf:"stats_queue_size"`

	// StatsWorkerCount sets the number of stat recording workers.
	StatsWorkerCount int `koanf:"stats_worker_count"`

	// DedupeSize sets the size of the event deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StatsRetentionDays sets how many days question stats are kept.
	StatsRetentionDays int `koanf:"stats_retention_days"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8080",
		DBPath:             "data/triboard.db",
		BoardSize:          10,
		GuestPrefix:        "游客",
		AdminToken:         "",
		StatsQueueSize:     10_000,
		StatsWorkerCount:   runtime.NumCPU() * 2,
		DedupeSize:         50_000,
		StatsRetentionDays: 7,
	}
}
