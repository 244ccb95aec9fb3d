package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if HOOPDEX_CONFIG is set
//  3. env (prefix HOOPDEX_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("HOOPDEX_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: HOOPDEX_ADDR, HOOPDEX_SOURCE_DIR, ...
	// Map env keys like HOOPDEX_SOURCE_DIR -> source_dir (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("HOOPDEX_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "hoopdex_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SourceDir == "":
		return fmt.Errorf("%w: source_dir must not be empty", ErrInvalidConfig)
	case c.QueryTimeout <= 0:
		return fmt.Errorf("%w: query_timeout must be positive", ErrInvalidConfig)
	case c.MinSharedDims < 1:
		return fmt.Errorf("%w: min_shared_dims must be at least 1", ErrInvalidConfig)
	case c.DefaultPageSize < 1 || c.MaxPageSize < c.DefaultPageSize:
		return fmt.Errorf("%w: page sizes must satisfy 1 <= default <= max", ErrInvalidConfig)
	case c.DeltaNegligible < 0 || c.DeltaMinor <= c.DeltaNegligible:
		return fmt.Errorf("%w: delta cut points must satisfy 0 <= negligible < minor", ErrInvalidConfig)
	}
	return nil
}
