// Package stream carries challenge change notifications from the store to
// the lifecycle dispatcher.
//
// The store's trigger-on-write mechanism is modeled as an explicit bounded
// event stream. Delivery to consumers is at-least-once from the consumer's
// point of view; idempotency lives in the dispatcher, not here.
package stream

import (
	"context"
	"sync"

	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/pkg/metrics"
)

// Default stream configuration constants.
const (
	defaultCapacity = 1024
)

// Event is the payload type flowing through the stream.
type Event = model.ChangeEvent

// Stream provides non-blocking publish and channel-based subscribe semantics.
type Stream interface {
	// Publish adds a change event to the stream.
	// Returns false if the stream is full or closed and the event was dropped.
	Publish(ctx context.Context, e Event) bool

	// Subscribe returns a channel that receives events as they become
	// available. The channel is closed when the stream is closed.
	Subscribe(ctx context.Context) <-chan Event

	// Len returns the current number of buffered events.
	Len(ctx context.Context) int

	// Close shuts down the stream. After closing, publishes are rejected and
	// the subscribe channel drains then closes.
	Close() error

	// IsClosed returns true if the stream has been closed.
	IsClosed() bool
}

// InMemoryStream implements Stream using a buffered channel.
type InMemoryStream struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryStream creates a new in-memory stream with configuration options.
func NewInMemoryStream(opts ...Option) *InMemoryStream {
	s := &InMemoryStream{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.events = make(chan Event, s.capacity)

	metrics.UpdateStreamCapacity(s.capacity)
	metrics.UpdateStreamDepth(0)

	return s
}

// Publish adds a change event to the stream.
func (s *InMemoryStream) Publish(ctx context.Context, e Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		metrics.RecordStreamDropped()
		return false
	}

	select {
	case s.events <- e:
		metrics.RecordStreamPublish()
		metrics.UpdateStreamDepth(len(s.events))
		return true
	case <-ctx.Done():
		metrics.RecordStreamDropped()
		return false
	default:
		metrics.RecordStreamDropped()
		return false // stream is full
	}
}

// Subscribe returns a channel that receives events as they become available.
func (s *InMemoryStream) Subscribe(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for ev := range s.events {
			select {
			case out <- ev:
				metrics.UpdateStreamDepth(len(s.events))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of buffered events.
func (s *InMemoryStream) Len(ctx context.Context) int {
	depth := len(s.events)
	metrics.UpdateStreamDepth(depth)
	return depth
}

// Close shuts down the stream.
func (s *InMemoryStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // already closed
	}

	close(s.events)
	s.closed = true

	return nil
}

// IsClosed returns true if the stream has been closed.
func (s *InMemoryStream) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
