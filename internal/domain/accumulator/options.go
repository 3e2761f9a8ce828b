package accumulator

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/pong/pkg/logger"
)

// Option applies a configuration option to the Accumulator.
type Option func(*Accumulator)

// WithCapacity sets the maximum number of responses per challenge.
func WithCapacity(capacity int) Option {
	return func(a *Accumulator) {
		if capacity > 0 {
			a.capacity = capacity
		}
	}
}

// WithMaxAttempts bounds the conditional-update retry loop.
func WithMaxAttempts(attempts int) Option {
	return func(a *Accumulator) {
		if attempts > 0 {
			a.maxAttempts = attempts
		}
	}
}

// WithRetryDelay sets the base delay between retry attempts. Zero disables
// backoff.
func WithRetryDelay(delay time.Duration) Option {
	return func(a *Accumulator) {
		if delay >= 0 {
			a.retryDelay = delay
		}
	}
}

// WithClock sets the clock used for latency metrics and backoff.
func WithClock(clock clockwork.Clock) Option {
	return func(a *Accumulator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Accumulator) {
		if log != nil {
			a.log = log
		}
	}
}
