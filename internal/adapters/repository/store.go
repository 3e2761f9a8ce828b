// Package repository defines the challenge store contract and its
// implementations.
//
// The store is the only shared mutable resource in the system. Writers go
// through ConditionalUpdate, an optimistic compare-and-swap keyed on the
// record version; every successful create/update/delete emits a change
// notification to the configured publisher.
package repository

import (
	"context"

	"github.com/okian/pong/internal/domain/model"
)

// Publisher receives change notifications for committed store mutations.
// A full publisher drops events rather than blocking the write path.
type Publisher interface {
	Publish(ctx context.Context, e model.ChangeEvent) bool
}

// Store provides atomic read/write access to challenge records.
type Store interface {
	// Create persists a new challenge. The store stamps IssuedAt from its
	// clock (first successful persistence, set exactly once), moves the
	// status to issued and assigns version 1.
	// Returns ErrExists if the id is already taken.
	Create(ctx context.Context, c *model.Challenge) error

	// Get returns a deep copy of the record.
	// Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*model.Challenge, error)

	// ConditionalUpdate commits c only if the stored version still equals
	// expectedVersion, bumping the version by one. Returns
	// ErrVersionConflict when a concurrent writer won the race; callers are
	// expected to re-read and retry.
	ConditionalUpdate(ctx context.Context, id string, expectedVersion uint64, c *model.Challenge) error

	// Delete removes a record (archival cleanup). The emitted deleted
	// notification is a no-op for the dispatcher.
	Delete(ctx context.Context, id string) error
}
