package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/okian/pong/internal/domain/model"
)

// bucketChallenges holds one JSON-encoded record per challenge id.
var bucketChallenges = []byte("challenges")

// BoltStore implements Store backed by bbolt.
//
// bbolt serializes writer transactions, so the version check and the write
// happen atomically inside a single Update; no extra locking is needed to
// honor the conditional-update contract. Not suitable for multiple
// processes sharing one file.
type BoltStore struct {
	cfg storeConfig
	bdb *bbolt.DB
}

// NewBoltStore opens (or creates) the database file at path.
func NewBoltStore(path string, opts ...Option) (*BoltStore, error) {
	bdb, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	if err := bdb.Update(func(tx *bbolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists(bucketChallenges)
		return berr
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{
		cfg: newStoreConfig(opts),
		bdb: bdb,
	}, nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.bdb.Close()
}

// Create persists a new challenge and emits a created notification.
func (s *BoltStore) Create(ctx context.Context, c *model.Challenge) error {
	stored := c.Clone()
	if stored.Responses == nil {
		stored.Responses = make(map[string]int64)
	}

	err := s.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChallenges)
		if b.Get([]byte(stored.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrExists, stored.ID)
		}

		if stored.IssuedAt == 0 {
			stored.IssuedAt = s.cfg.clock.Now().UnixMilli()
		}
		stored.Status = model.StatusIssued
		stored.Version = 1

		raw, merr := json.Marshal(stored)
		if merr != nil {
			return fmt.Errorf("encode challenge: %w", merr)
		}
		return b.Put([]byte(stored.ID), raw)
	})
	if err != nil {
		return err
	}

	*c = *stored.Clone()
	s.notify(ctx, stored, model.ChangeCreated)
	return nil
}

// Get returns the decoded record.
func (s *BoltStore) Get(ctx context.Context, id string) (*model.Challenge, error) {
	var out *model.Challenge
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketChallenges).Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		var c model.Challenge
		if derr := json.Unmarshal(raw, &c); derr != nil {
			return fmt.Errorf("decode challenge: %w", derr)
		}
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConditionalUpdate commits c only if the stored version is unchanged.
func (s *BoltStore) ConditionalUpdate(ctx context.Context, id string, expectedVersion uint64, c *model.Challenge) error {
	next := c.Clone()
	next.ID = id

	err := s.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChallenges)
		raw := b.Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		var stored model.Challenge
		if derr := json.Unmarshal(raw, &stored); derr != nil {
			return fmt.Errorf("decode challenge: %w", derr)
		}
		if stored.Version != expectedVersion {
			return fmt.Errorf("%w: %s expected %d have %d", ErrVersionConflict, id, expectedVersion, stored.Version)
		}

		next.Version = expectedVersion + 1
		out, merr := json.Marshal(next)
		if merr != nil {
			return fmt.Errorf("encode challenge: %w", merr)
		}
		return b.Put([]byte(id), out)
	})
	if err != nil {
		return err
	}

	*c = *next.Clone()
	s.notify(ctx, next, model.ChangeUpdated)
	return nil
}

// Delete removes a record.
func (s *BoltStore) Delete(ctx context.Context, id string) error {
	var removed *model.Challenge
	err := s.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChallenges)
		raw := b.Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		var c model.Challenge
		if derr := json.Unmarshal(raw, &c); derr != nil {
			return fmt.Errorf("decode challenge: %w", derr)
		}
		removed = &c
		return b.Delete([]byte(id))
	})
	if err != nil {
		return err
	}

	s.notify(ctx, removed, model.ChangeDeleted)
	return nil
}

func (s *BoltStore) notify(ctx context.Context, c *model.Challenge, kind model.ChangeKind) {
	if s.cfg.publisher == nil {
		return
	}
	s.cfg.publisher.Publish(ctx, model.ChangeEvent{Challenge: c.Clone(), Kind: kind})
}
