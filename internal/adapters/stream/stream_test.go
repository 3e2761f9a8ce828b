package stream

import (
	"context"
	"testing"

	"github.com/okian/pong/internal/domain/model"
)

func ev(id string, kind model.ChangeKind) Event {
	return Event{Challenge: &model.Challenge{ID: id}, Kind: kind}
}

func TestInMemoryStream_BasicOperations(t *testing.T) {
	s := NewInMemoryStream(WithCapacity(2))
	ctx := context.Background()

	if l := s.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !s.Publish(ctx, ev("c-1", model.ChangeCreated)) {
		t.Error("expected publish to succeed")
	}

	if l := s.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	sub := s.Subscribe(ctx)
	got := <-sub
	if got.Challenge.ID != "c-1" || got.Kind != model.ChangeCreated {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestInMemoryStream_Backpressure(t *testing.T) {
	s := NewInMemoryStream(WithCapacity(2))
	ctx := context.Background()

	if !s.Publish(ctx, ev("c-1", model.ChangeCreated)) {
		t.Error("expected publish to succeed")
	}
	if !s.Publish(ctx, ev("c-2", model.ChangeUpdated)) {
		t.Error("expected publish to succeed")
	}

	// Full stream drops instead of blocking the store's write path.
	if s.Publish(ctx, ev("c-3", model.ChangeUpdated)) {
		t.Error("expected publish to fail when full")
	}
}

func TestInMemoryStream_Close(t *testing.T) {
	s := NewInMemoryStream()
	ctx := context.Background()

	if !s.Publish(ctx, ev("c-1", model.ChangeCreated)) {
		t.Error("expected publish to succeed")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !s.IsClosed() {
		t.Error("expected stream to report closed")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	if s.Publish(ctx, ev("c-2", model.ChangeUpdated)) {
		t.Error("expected publish to fail after close")
	}

	// Buffered events drain, then the channel closes.
	sub := s.Subscribe(ctx)
	if got := <-sub; got.Challenge.ID != "c-1" {
		t.Errorf("expected buffered event, got %+v", got)
	}
	if _, ok := <-sub; ok {
		t.Error("expected subscribe channel to close after drain")
	}
}
