// Package config defines service configuration and its layered loading.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory game queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of indexing workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many game ids the deduper remembers.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the position store.
	ShardCount int `koanf:"shard_count"`

	// MaxPly limits how deep into a game positions are indexed.
	MaxPly int `koanf:"max_ply"`

	// MaxGamesPerCell caps the game references kept per cell; 0 keeps all.
	MaxGamesPerCell int `koanf:"max_games_per_cell"`

	// SnapshotPath is where the index is restored from and saved to. Empty disables snapshots.
	SnapshotPath string `koanf:"snapshot_path"`

	// LilaBaseURL is the lichess API root used for user imports.
	LilaBaseURL string `koanf:"lila_base_url"`

	// LilaTimeoutMS bounds one import request.
	LilaTimeoutMS int `koanf:"lila_timeout_ms"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		QueueSize:       100_000,
		WorkerCount:     runtime.NumCPU() * 2,
		DedupeSize:      500_000,
		ShardCount:      16,
		MaxPly:          40,
		MaxGamesPerCell: 15,
		LilaBaseURL:     "https://lichess.org",
		LilaTimeoutMS:   60_000,
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive, got %d", ErrInvalidConfig, c.ShardCount)
	case c.MaxPly <= 0:
		return fmt.Errorf("%w: max_ply must be positive, got %d", ErrInvalidConfig, c.MaxPly)
	case c.MaxGamesPerCell < 0:
		return fmt.Errorf("%w: max_games_per_cell must not be negative, got %d", ErrInvalidConfig, c.MaxGamesPerCell)
	case c.LilaTimeoutMS <= 0:
		return fmt.Errorf("%w: lila_timeout_ms must be positive, got %d", ErrInvalidConfig, c.LilaTimeoutMS)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
