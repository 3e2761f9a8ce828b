package accumulator_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pong/internal/adapters/repository"
	"github.com/okian/pong/internal/domain/accumulator"
	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func newIssuedChallenge(t *testing.T, store repository.Store, issuedAtMS int64) string {
	t.Helper()
	c := &model.Challenge{ID: "c-1", Team: "T1", Initiator: "alice", IssuedAt: issuedAtMS}
	if err := store.Create(context.Background(), c); err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	return c.ID
}

func TestSubmit_DecisionPolicy(t *testing.T) {
	Convey("Given a challenge issued at T0=1000", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		id := newIssuedChallenge(t, store, 1000)
		acc := accumulator.New(store, accumulator.WithRetryDelay(0))

		Convey("When an unknown challenge is targeted", func() {
			_, err := acc.Submit(ctx, "nope", "bob", 1200)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When responders A, B, C commit in arrival order 1500, 1200, 1800", func() {
			ra, err := acc.Submit(ctx, id, "A", 1500)
			So(err, ShouldBeNil)
			rb, err := acc.Submit(ctx, id, "B", 1200)
			So(err, ShouldBeNil)
			rc, err := acc.Submit(ctx, id, "C", 1800)
			So(err, ShouldBeNil)

			Convey("Then ranks follow timestamps, not commit order", func() {
				So(ra.Outcome, ShouldEqual, accumulator.OutcomeAccepted)
				So(ra.Rank, ShouldEqual, 1) // alone at acceptance time
				So(ra.LatencyMS, ShouldEqual, 500)

				So(rb.Rank, ShouldEqual, 1) // 1200 beats 1500
				So(rb.LatencyMS, ShouldEqual, 200)

				So(rc.Rank, ShouldEqual, 3)
				So(rc.LatencyMS, ShouldEqual, 800)
			})

			Convey("And the third acceptance closes the challenge in the same write", func() {
				So(ra.Closed, ShouldBeFalse)
				So(rb.Closed, ShouldBeFalse)
				So(rc.Closed, ShouldBeTrue)

				got, gerr := store.Get(ctx, id)
				So(gerr, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusClosed)
			})

			Convey("And an earlier-timestamped latecomer is still too late", func() {
				rd, derr := acc.Submit(ctx, id, "D", 1100)
				So(derr, ShouldBeNil)
				So(rd.Outcome, ShouldEqual, accumulator.OutcomeTooLate)

				got, _ := store.Get(ctx, id)
				So(len(got.Responses), ShouldEqual, 3)
			})
		})

		Convey("When the same responder submits twice", func() {
			first, err := acc.Submit(ctx, id, "B", 1200)
			So(err, ShouldBeNil)
			So(first.Outcome, ShouldEqual, accumulator.OutcomeAccepted)

			second, err := acc.Submit(ctx, id, "B", 1900)
			So(err, ShouldBeNil)

			Convey("Then the resubmission is idempotent and the timestamp is kept", func() {
				So(second.Outcome, ShouldEqual, accumulator.OutcomeAlreadyResponded)
				got, _ := store.Get(ctx, id)
				So(got.Responses["B"], ShouldEqual, 1200)
			})
		})

		Convey("When a response predates the issue instant", func() {
			r, err := acc.Submit(ctx, id, "E", 900)
			So(err, ShouldBeNil)

			Convey("Then it is accepted with a negative latency, not rejected", func() {
				So(r.Outcome, ShouldEqual, accumulator.OutcomeAccepted)
				So(r.LatencyMS, ShouldEqual, -100)
			})
		})
	})
}

func TestSubmit_ConcurrentCapacity(t *testing.T) {
	Convey("Given many responders racing one challenge", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		id := newIssuedChallenge(t, store, 1000)
		acc := accumulator.New(store,
			accumulator.WithRetryDelay(0),
			accumulator.WithMaxAttempts(100),
		)

		const contenders = 24
		receipts := make([]accumulator.Receipt, contenders)
		errs := make([]error, contenders)

		var wg sync.WaitGroup
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				responder := fmt.Sprintf("r-%02d", i)
				receipts[i], errs[i] = acc.Submit(ctx, id, responder, int64(1100+i))
			}(i)
		}
		wg.Wait()

		Convey("Then exactly capacity submissions are accepted", func() {
			accepted, tooLate, closures := 0, 0, 0
			for i := range receipts {
				So(errs[i], ShouldBeNil)
				switch receipts[i].Outcome {
				case accumulator.OutcomeAccepted:
					accepted++
					if receipts[i].Closed {
						closures++
					}
				case accumulator.OutcomeTooLate:
					tooLate++
				default:
					t.Errorf("unexpected outcome %s", receipts[i].Outcome)
				}
			}
			So(accepted, ShouldEqual, model.DefaultCapacity)
			So(tooLate, ShouldEqual, contenders-model.DefaultCapacity)
			So(closures, ShouldEqual, 1)
		})

		Convey("And the stored record never exceeds capacity", func() {
			got, err := store.Get(ctx, id)
			So(err, ShouldBeNil)
			So(len(got.Responses), ShouldEqual, model.DefaultCapacity)
			So(got.Status, ShouldEqual, model.StatusClosed)
		})
	})
}

// conflictStore wraps a Store and fails the first n conditional updates.
type conflictStore struct {
	repository.Store
	mu        sync.Mutex
	conflicts int
}

func (s *conflictStore) ConditionalUpdate(ctx context.Context, id string, expectedVersion uint64, c *model.Challenge) error {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return repository.ErrVersionConflict
	}
	s.mu.Unlock()
	return s.Store.ConditionalUpdate(ctx, id, expectedVersion, c)
}

func TestSubmit_Contention(t *testing.T) {
	Convey("Given a store that keeps losing the version race", t, func() {
		ctx := context.Background()
		mem := repository.NewMemStore()
		id := newIssuedChallenge(t, mem, 1000)

		Convey("When conflicts outlast the retry budget", func() {
			store := &conflictStore{Store: mem, conflicts: 10}
			acc := accumulator.New(store,
				accumulator.WithRetryDelay(0),
				accumulator.WithMaxAttempts(3),
			)

			_, err := acc.Submit(ctx, id, "bob", 1200)

			Convey("Then the submission surfaces as transient contention", func() {
				So(errors.Is(err, accumulator.ErrContention), ShouldBeTrue)
			})
		})

		Convey("When conflicts clear within the budget", func() {
			store := &conflictStore{Store: mem, conflicts: 2}
			acc := accumulator.New(store,
				accumulator.WithRetryDelay(0),
				accumulator.WithMaxAttempts(5),
			)

			r, err := acc.Submit(ctx, id, "bob", 1200)

			Convey("Then the retry loop recovers transparently", func() {
				So(err, ShouldBeNil)
				So(r.Outcome, ShouldEqual, accumulator.OutcomeAccepted)
				So(r.Rank, ShouldEqual, 1)
			})
		})
	})
}

func TestSubmit_CustomCapacity(t *testing.T) {
	Convey("Given an accumulator with capacity 1", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(
			repository.WithClock(clockwork.NewFakeClockAt(time.UnixMilli(1000))),
		)
		c := &model.Challenge{ID: "c-1", Team: "T1", Initiator: "alice"}
		So(store.Create(ctx, c), ShouldBeNil)

		acc := accumulator.New(store,
			accumulator.WithCapacity(1),
			accumulator.WithRetryDelay(0),
		)

		Convey("When the first response lands", func() {
			r, err := acc.Submit(ctx, "c-1", "bob", 1200)
			So(err, ShouldBeNil)

			Convey("Then it closes the challenge immediately", func() {
				So(r.Outcome, ShouldEqual, accumulator.OutcomeAccepted)
				So(r.Closed, ShouldBeTrue)
			})

			Convey("And the next one is too late", func() {
				r2, err2 := acc.Submit(ctx, "c-1", "carol", 1150)
				So(err2, ShouldBeNil)
				So(r2.Outcome, ShouldEqual, accumulator.OutcomeTooLate)
			})
		})
	})
}
