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
//  1. defaults (New(ctx))
//  2. file (YAML) if PONG_CONFIG is set
//  3. env (prefix PONG_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("PONG_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: PONG_ADDR, PONG_CAPACITY, ...
	// Map env keys like PONG_STREAM_SIZE -> stream_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("PONG_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "pong_")
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
	case c.Capacity < 1:
		return fmt.Errorf("%w: capacity must be at least 1", ErrInvalidConfig)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max_attempts must be at least 1", ErrInvalidConfig)
	case c.StreamSize < 1:
		return fmt.Errorf("%w: stream_size must be at least 1", ErrInvalidConfig)
	case c.DispatcherCount < 1:
		return fmt.Errorf("%w: dispatcher_count must be at least 1", ErrInvalidConfig)
	case c.WebhookTimeoutMS < 0:
		return fmt.Errorf("%w: webhook_timeout_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}
