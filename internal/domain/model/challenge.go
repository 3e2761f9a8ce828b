// Package model contains domain records passed between layers.
package model

// Status describes where a challenge sits in its lifecycle.
type Status string

// Challenge lifecycle states.
const (
	// StatusPending means the record exists but has not been persisted with
	// an issue timestamp yet.
	StatusPending Status = "pending"
	// StatusIssued means the challenge is broadcast-eligible and accepting
	// responses.
	StatusIssued Status = "issued"
	// StatusClosed means the capacity-th response was committed; the record
	// is immutable from the caller's point of view.
	StatusClosed Status = "closed"
)

// DefaultCapacity is the number of responses a challenge accepts.
const DefaultCapacity = 3

// Challenge is the single source of truth for one round of the game.
// All mutation goes through the store's conditional update; no component
// keeps private copies across invocations.
type Challenge struct {
	ID        string `json:"id"`
	Team      string `json:"team"`
	Initiator string `json:"initiator"`

	// IssuedAt is stamped exactly once, at first successful persistence,
	// in milliseconds since epoch. Zero means not yet issued.
	IssuedAt int64 `json:"issued_at"`

	// Responses maps responder id to the platform-observed timestamp in
	// milliseconds since epoch. First write wins per responder; ranking is
	// by timestamp, never by map iteration or arrival order.
	Responses map[string]int64 `json:"responses"`

	Status Status `json:"status"`

	// Announced and Summarized are the dispatcher's idempotency flags:
	// set via conditional update after the corresponding one-shot
	// notification went out.
	Announced  bool `json:"announced"`
	Summarized bool `json:"summarized"`

	// Version is the store-managed token for conditional updates.
	Version uint64 `json:"version"`
}

// Clone returns a deep copy so callers never alias the stored record.
func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Responses = make(map[string]int64, len(c.Responses))
	for responder, ts := range c.Responses {
		cp.Responses[responder] = ts
	}
	return &cp
}

// Closed reports whether the challenge stopped accepting responses.
func (c *Challenge) Closed() bool {
	return c.Status == StatusClosed
}

// ChangeKind labels a store change notification.
type ChangeKind string

// Change notification kinds emitted by the store.
const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent is one record-change notification flowing from the store to
// the lifecycle dispatcher. Delivery is at-least-once; consumers must be
// idempotent per transition.
type ChangeEvent struct {
	Challenge *Challenge
	Kind      ChangeKind
}
