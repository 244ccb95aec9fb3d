// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Flat keys with koanf tags; env vars map 1:1 (HOOPDEX_SOURCE_DIR -> source_dir).
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SourceDir holds the CSV build sources to ingest.
	SourceDir string `koanf:"source_dir"`

	// WatchSources enables automatic reload when SourceDir changes.
	WatchSources bool `koanf:"watch_sources"`

	// WatchDebounce coalesces bursts of file events into one reload.
	WatchDebounce time.Duration `koanf:"watch_debounce"`

	// IngestWorkers bounds the number of sources parsed concurrently.
	IngestWorkers int `koanf:"ingest_workers"`

	// QueryTimeout caps every search, similarity and compare call.
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// DefaultPageSize and MaxPageSize bound search pagination.
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// MaxSimilar caps GET /builds/{id}/similar?k.
	MaxSimilar int `koanf:"max_similar"`

	// MinSharedDims is the floor on shared dimensions for similarity.
	MinSharedDims int `koanf:"min_shared_dims"`

	// DeltaNegligible and DeltaMinor are the normalized-delta cut points
	// between the comparison buckets.
	DeltaNegligible float64 `koanf:"delta_negligible"`
	DeltaMinor      float64 `koanf:"delta_minor"`

	// SnapshotPath enables the SQLite generation cache when non-empty.
	SnapshotPath string `koanf:"snapshot_path"`

	// SnapshotMaxAge prunes cached generations older than this on start.
	SnapshotMaxAge time.Duration `koanf:"snapshot_max_age"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		SourceDir:       "./builds",
		WatchSources:    true,
		WatchDebounce:   500 * time.Millisecond,
		IngestWorkers:   runtime.NumCPU(),
		QueryTimeout:    2 * time.Second,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		MaxSimilar:      50,
		MinSharedDims:   3,
		DeltaNegligible: 0.05,
		DeltaMinor:      0.2,
		SnapshotPath:    "",
		SnapshotMaxAge:  30 * 24 * time.Hour,
	}
}
