package repository

import (
	"github.com/jonboulle/clockwork"
)

// Option applies a configuration option to a store implementation.
type Option func(*storeConfig)

// storeConfig holds knobs shared by the store implementations.
type storeConfig struct {
	clock     clockwork.Clock
	publisher Publisher
}

func newStoreConfig(opts []Option) storeConfig {
	cfg := storeConfig{
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithClock sets the clock used to stamp IssuedAt. Tests inject a fake.
func WithClock(clock clockwork.Clock) Option {
	return func(c *storeConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithPublisher sets the change-notification sink. Without one, mutations
// commit silently.
func WithPublisher(p Publisher) Option {
	return func(c *storeConfig) {
		c.publisher = p
	}
}
