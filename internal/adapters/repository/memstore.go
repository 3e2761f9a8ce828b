package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/pong/internal/domain/model"
)

// MemStore implements Store with an in-process map. Suitable for a single
// instance; the bbolt store offers the same contract with durability.
type MemStore struct {
	cfg storeConfig

	mu      sync.RWMutex
	records map[string]*model.Challenge
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	return &MemStore{
		cfg:     newStoreConfig(opts),
		records: make(map[string]*model.Challenge),
	}
}

// Create persists a new challenge and emits a created notification.
func (s *MemStore) Create(ctx context.Context, c *model.Challenge) error {
	s.mu.Lock()
	if _, ok := s.records[c.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, c.ID)
	}

	stored := c.Clone()
	if stored.Responses == nil {
		stored.Responses = make(map[string]int64)
	}
	if stored.IssuedAt == 0 {
		stored.IssuedAt = s.cfg.clock.Now().UnixMilli()
	}
	stored.Status = model.StatusIssued
	stored.Version = 1
	s.records[c.ID] = stored

	out := stored.Clone()
	s.mu.Unlock()

	*c = *out.Clone()
	s.notify(ctx, out, model.ChangeCreated)
	return nil
}

// Get returns a deep copy of the stored record.
func (s *MemStore) Get(ctx context.Context, id string) (*model.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return stored.Clone(), nil
}

// ConditionalUpdate commits c only if the stored version is unchanged.
func (s *MemStore) ConditionalUpdate(ctx context.Context, id string, expectedVersion uint64, c *model.Challenge) error {
	s.mu.Lock()
	stored, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if stored.Version != expectedVersion {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s expected %d have %d", ErrVersionConflict, id, expectedVersion, stored.Version)
	}

	next := c.Clone()
	next.ID = id
	next.Version = expectedVersion + 1
	s.records[id] = next

	out := next.Clone()
	s.mu.Unlock()

	*c = *out.Clone()
	s.notify(ctx, out, model.ChangeUpdated)
	return nil
}

// Delete removes a record.
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	stored, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.records, id)
	out := stored.Clone()
	s.mu.Unlock()

	s.notify(ctx, out, model.ChangeDeleted)
	return nil
}

// Count returns the number of stored challenges.
func (s *MemStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemStore) notify(ctx context.Context, c *model.Challenge, kind model.ChangeKind) {
	if s.cfg.publisher == nil {
		return
	}
	s.cfg.publisher.Publish(ctx, model.ChangeEvent{Challenge: c, Kind: kind})
}
