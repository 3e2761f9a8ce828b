// Package dispatch reacts to challenge change notifications and drives the
// one-shot side effects: the challenge broadcast when a record is issued,
// and the scoreboard notification when it closes.
//
// The change stream delivers at-least-once, so every transition is guarded
// by an idempotency flag on the record itself. A consumer first claims the
// flag with a conditional update and only the claim winner sends; losers
// re-read, see the flag set and no-op. That holds the "never more than one
// broadcast, never more than one scoreboard per challenge" contract without
// assuming exactly-once delivery anywhere.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/pong/internal/adapters/gateway"
	"github.com/okian/pong/internal/adapters/repository"
	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/internal/domain/scoreboard"
	"github.com/okian/pong/pkg/logger"
	"github.com/okian/pong/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultWorkerCount   = 2
	defaultClaimAttempts = 5
)

// Stream defines how the dispatcher receives change notifications.
type Stream interface {
	Subscribe(ctx context.Context) <-chan model.ChangeEvent
}

// Dispatcher consumes change events and fires lifecycle side effects.
type Dispatcher struct {
	store     repository.Store
	deliverer gateway.Deliverer
	stream    Stream

	workerCount     int
	claimAttempts   int
	endpoints       map[string]string
	defaultEndpoint string

	wg  sync.WaitGroup
	log logger.Logger
}

// New creates a Dispatcher over the given store, deliverer and stream.
func New(store repository.Store, deliverer gateway.Deliverer, stream Stream, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:         store,
		deliverer:     deliverer,
		stream:        stream,
		workerCount:   defaultWorkerCount,
		claimAttempts: defaultClaimAttempts,
		endpoints:     make(map[string]string),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.log == nil {
		d.log = logger.Get().Named("dispatch")
	}

	return d
}

// Start launches the consumer workers. They stop when ctx is canceled or
// the stream closes.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.run(ctx)
		}()
	}
}

// Shutdown waits for the workers to drain or the context to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown timed out: %w", ctx.Err())
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	events := d.stream.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.handle(ctx, ev)
		}
	}
}

// handle inspects one change notification. Redeliveries of the same
// transition are expected and harmless.
func (d *Dispatcher) handle(ctx context.Context, ev model.ChangeEvent) {
	// Deletions are archival cleanup, never a new transition.
	if ev.Kind == model.ChangeDeleted || ev.Challenge == nil {
		return
	}

	d.ensureAnnounced(ctx, ev.Challenge.ID)
	d.ensureSummarized(ctx, ev.Challenge.ID)
}

// ensureAnnounced sends the challenge broadcast once per challenge.
func (d *Dispatcher) ensureAnnounced(ctx context.Context, id string) {
	for attempt := 0; attempt < d.claimAttempts; attempt++ {
		c, err := d.store.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				d.log.Error(ctx, "reading challenge for broadcast", logger.String("challengeID", id), logger.Error(err))
			}
			return
		}
		if c.IssuedAt == 0 {
			return // not issued yet
		}
		if c.Announced {
			metrics.RecordDispatchSkipped()
			return
		}

		// Claim before sending: only the claim winner delivers.
		c.Announced = true
		if err := d.store.ConditionalUpdate(ctx, id, c.Version, c); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			d.log.Error(ctx, "claiming broadcast flag", logger.String("challengeID", id), logger.Error(err))
			return
		}

		d.deliver(ctx, c.Team, broadcastPayload(c))
		metrics.RecordBroadcastSent()
		return
	}

	d.log.Warn(ctx, "broadcast claim retries exhausted", logger.String("challengeID", id))
}

// ensureSummarized sends the scoreboard once per closed challenge.
func (d *Dispatcher) ensureSummarized(ctx context.Context, id string) {
	for attempt := 0; attempt < d.claimAttempts; attempt++ {
		c, err := d.store.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				d.log.Error(ctx, "reading challenge for scoreboard", logger.String("challengeID", id), logger.Error(err))
			}
			return
		}
		if !c.Closed() {
			return
		}
		if c.Summarized {
			metrics.RecordDispatchSkipped()
			return
		}

		c.Summarized = true
		if err := d.store.ConditionalUpdate(ctx, id, c.Version, c); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			d.log.Error(ctx, "claiming scoreboard flag", logger.String("challengeID", id), logger.Error(err))
			return
		}

		summary := scoreboard.Compose(c)
		if summary.Anomalous() {
			d.log.Warn(ctx, "scoreboard contains clock anomalies", logger.String("challengeID", id))
		}

		d.deliver(ctx, c.Team, scoreboardPayload(c, summary))
		metrics.RecordScoreboardSent()
		return
	}

	d.log.Warn(ctx, "scoreboard claim retries exhausted", logger.String("challengeID", id))
}

// deliver pushes a payload through the gateway. Failures are logged and
// dropped; the record's state is already durable.
func (d *Dispatcher) deliver(ctx context.Context, team string, p gateway.Payload) {
	if err := d.deliverer.Deliver(ctx, d.endpointFor(team), p); err != nil {
		d.log.Error(ctx, "notification delivery failed",
			logger.String("kind", p.Kind),
			logger.String("challengeID", p.ChallengeID),
			logger.String("team", team),
			logger.Error(err),
		)
	}
}

func (d *Dispatcher) endpointFor(team string) string {
	if endpoint, ok := d.endpoints[team]; ok {
		return endpoint
	}
	return d.defaultEndpoint
}

// broadcastPayload renders the challenge announcement.
func broadcastPayload(c *model.Challenge) gateway.Payload {
	return gateway.Payload{
		Kind:        gateway.KindChallenge,
		ChallengeID: c.ID,
		Team:        c.Team,
		Text:        fmt.Sprintf("🏓 Ping! %s threw down the paddle. First to pong makes the board. Challenge %s is live.", c.Initiator, c.ID),
	}
}

// scoreboardPayload renders the final standings.
func scoreboardPayload(c *model.Challenge, summary scoreboard.Summary) gateway.Payload {
	return gateway.Payload{
		Kind:        gateway.KindScoreboard,
		ChallengeID: c.ID,
		Team:        c.Team,
		Text:        scoreboard.Render(summary),
		Summary:     &summary,
	}
}
