package dispatch

import (
	"github.com/okian/pong/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithWorkerCount sets the number of consumer goroutines.
func WithWorkerCount(count int) Option {
	return func(d *Dispatcher) {
		if count > 0 {
			d.workerCount = count
		}
	}
}

// WithClaimAttempts bounds the idempotency-flag claim loop.
func WithClaimAttempts(attempts int) Option {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.claimAttempts = attempts
		}
	}
}

// WithEndpoints maps team ids to their webhook URLs.
func WithEndpoints(endpoints map[string]string) Option {
	return func(d *Dispatcher) {
		if endpoints != nil {
			d.endpoints = endpoints
		}
	}
}

// WithDefaultEndpoint sets the fallback URL for unmapped teams.
func WithDefaultEndpoint(endpoint string) Option {
	return func(d *Dispatcher) {
		d.defaultEndpoint = endpoint
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}
