// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"

	"github.com/okian/pong/internal/domain/model"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Capacity is the number of responses that close a challenge.
	Capacity int `koanf:"capacity"`

	// MaxAttempts bounds the optimistic retry loop on contended submissions.
	MaxAttempts int `koanf:"max_attempts"`

	// StreamSize bounds the in-memory change-event stream.
	StreamSize int `koanf:"stream_size"`

	// DispatcherCount sets the number of lifecycle dispatcher workers.
	DispatcherCount int `koanf:"dispatcher_count"`

	// StorePath selects a bbolt database file. Empty runs in memory.
	StorePath string `koanf:"store_path"`

	// WebhookTimeoutMS caps each outbound notification delivery.
	WebhookTimeoutMS int `koanf:"webhook_timeout_ms"`

	// DefaultWebhook receives notifications for teams without a mapping.
	DefaultWebhook string `koanf:"default_webhook"`

	// Webhooks maps team ids to webhook URLs.
	Webhooks map[string]string `koanf:"webhooks"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and is
// currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		Capacity:         model.DefaultCapacity,
		MaxAttempts:      5,
		StreamSize:       1024,
		DispatcherCount:  2,
		WebhookTimeoutMS: 5000,
		Webhooks:         map[string]string{},
	}
	return c
}
