// Package accumulator turns concurrent, unordered response submissions into
// a consistent, capacity-bounded set of ranked responses on the challenge
// record.
//
// Every submission runs as a read-decide-write cycle against the store's
// conditional update. Losing the version race means re-reading and deciding
// again from scratch; the decision (duplicate, too late, accept, close) is
// always made against the freshly read record, so capacity can never be
// exceeded and closure happens in the same write as the capacity-th accept.
package accumulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/pong/internal/adapters/repository"
	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/pkg/logger"
	"github.com/okian/pong/pkg/metrics"
)

// Default accumulator configuration constants.
const (
	defaultMaxAttempts = 5
	defaultRetryDelay  = 5 * time.Millisecond
)

// Outcome classifies the result of a submission.
type Outcome string

// Submission outcomes.
const (
	// OutcomeAccepted means the response was committed and ranked.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeAlreadyResponded means the responder is already ranked; the
	// original timestamp is kept (first write wins).
	OutcomeAlreadyResponded Outcome = "already_responded"
	// OutcomeTooLate means capacity was already reached.
	OutcomeTooLate Outcome = "too_late"
)

// Receipt describes what the submission did.
type Receipt struct {
	Outcome Outcome

	// Rank is the 1-based position by observed timestamp among accepted
	// responses, at the moment of acceptance. Zero unless accepted.
	Rank int

	// LatencyMS is observed timestamp minus the challenge's issue instant.
	// Zero unless accepted. May be negative on a clock anomaly.
	LatencyMS int64

	// Closed is true when this acceptance brought the challenge to
	// capacity.
	Closed bool
}

// Accumulator applies response submissions to challenge records.
type Accumulator struct {
	store       repository.Store
	capacity    int
	maxAttempts int
	retryDelay  time.Duration
	clock       clockwork.Clock
	log         logger.Logger
}

// New creates an Accumulator over the given store.
func New(store repository.Store, opts ...Option) *Accumulator {
	a := &Accumulator{
		store:       store,
		capacity:    model.DefaultCapacity,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		clock:       clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.log == nil {
		a.log = logger.Get().Named("accumulator")
	}

	return a
}

// Submit applies one responder's submission to the challenge.
//
// observedTS is the source platform's own event time in milliseconds since
// epoch, not the processing wall clock, so retries and processing delay do
// not distort ranking.
func (a *Accumulator) Submit(ctx context.Context, challengeID, responderID string, observedTS int64) (Receipt, error) {
	start := a.clock.Now()
	defer func() {
		metrics.RecordSubmitLatency(float64(a.clock.Since(start).Milliseconds()))
	}()

	for attempt := 1; ; attempt++ {
		receipt, err := a.try(ctx, challengeID, responderID, observedTS)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return Receipt{}, err
		}

		metrics.RecordCASConflict()
		if attempt >= a.maxAttempts {
			metrics.RecordCASExhausted()
			a.log.Warn(ctx, "submission retries exhausted",
				logger.String("challengeID", challengeID),
				logger.String("responderID", responderID),
				logger.Int("attempts", attempt),
			)
			return Receipt{}, fmt.Errorf("%w: %s after %d attempts", ErrContention, challengeID, attempt)
		}

		if a.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return Receipt{}, fmt.Errorf("submission canceled: %w", ctx.Err())
			case <-a.clock.After(a.retryDelay * time.Duration(attempt)):
			}
		}
	}
}

// try runs one read-decide-write cycle.
func (a *Accumulator) try(ctx context.Context, challengeID, responderID string, observedTS int64) (Receipt, error) {
	c, err := a.store.Get(ctx, challengeID)
	if err != nil {
		return Receipt{}, err
	}

	// Idempotent resubmission: keep the first timestamp, report success.
	if _, ok := c.Responses[responderID]; ok {
		metrics.RecordResponseDuplicate()
		return Receipt{Outcome: OutcomeAlreadyResponded}, nil
	}

	// Capacity is enforced by commit order of acceptance, not timestamp
	// value: an earlier-timestamped latecomer is not admitted.
	if c.Closed() || len(c.Responses) >= a.capacity {
		metrics.RecordResponseTooLate()
		return Receipt{Outcome: OutcomeTooLate}, nil
	}

	c.Responses[responderID] = observedTS
	closed := len(c.Responses) >= a.capacity
	if closed {
		// Closure rides the accepting write: there is never a window
		// where the record is at capacity but still open.
		c.Status = model.StatusClosed
	}

	if err := a.store.ConditionalUpdate(ctx, challengeID, c.Version, c); err != nil {
		return Receipt{}, err
	}

	latency := observedTS - c.IssuedAt
	if latency < 0 {
		metrics.RecordClockAnomaly()
		a.log.Warn(ctx, "response observed before challenge issue",
			logger.String("challengeID", challengeID),
			logger.String("responderID", responderID),
			logger.Int64("latencyMS", latency),
		)
	}

	metrics.RecordResponseAccepted()
	if closed {
		metrics.RecordChallengeClosed()
	}

	return Receipt{
		Outcome:   OutcomeAccepted,
		Rank:      rankOf(c.Responses, responderID),
		LatencyMS: latency,
		Closed:    closed,
	}, nil
}

// rankOf computes the 1-based rank of responder within the accepted set,
// ordered by (timestamp, responder id) to stay deterministic on ties.
func rankOf(responses map[string]int64, responderID string) int {
	ts := responses[responderID]
	rank := 1
	for other, otherTS := range responses {
		if other == responderID {
			continue
		}
		if otherTS < ts || (otherTS == ts && other < responderID) {
			rank++
		}
	}
	return rank
}
