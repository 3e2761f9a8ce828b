// Package service provides the core business service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/pong/internal/adapters/dispatch"
	"github.com/okian/pong/internal/adapters/gateway"
	"github.com/okian/pong/internal/adapters/repository"
	"github.com/okian/pong/internal/adapters/stream"
	"github.com/okian/pong/internal/domain/accumulator"
	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/internal/domain/scoreboard"
	"github.com/okian/pong/pkg/logger"
	"github.com/okian/pong/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultStreamSize      = 1024
	defaultDispatcherCount = 2
	shutdownGrace          = 10 * time.Second
)

// Service wires the challenge store, accumulator, dispatcher and gateway
// behind the API dependency interfaces.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	eventStream *stream.InMemoryStream
	acc         *accumulator.Accumulator
	dispatcher  *dispatch.Dispatcher
	deliverer   gateway.Deliverer

	// Configuration
	capacity        int
	maxAttempts     int
	streamSize      int
	dispatcherCount int
	storePath       string
	webhooks        map[string]string
	defaultWebhook  string
	webhookTimeout  time.Duration
	clock           clockwork.Clock

	// State
	started bool
	cancel  context.CancelFunc

	// Logging
	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCapacity sets the number of responses a challenge accepts.
func WithCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithMaxAttempts bounds the submission retry loop.
func WithMaxAttempts(attempts int) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// WithStreamSize sets the change-event stream capacity.
func WithStreamSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.streamSize = size
		}
	}
}

// WithDispatcherCount sets the number of dispatcher workers.
func WithDispatcherCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.dispatcherCount = count
		}
	}
}

// WithStorePath selects the bbolt store at path. Empty keeps the
// in-memory store.
func WithStorePath(path string) Option {
	return func(s *Service) {
		s.storePath = path
	}
}

// WithWebhooks maps team ids to webhook URLs.
func WithWebhooks(webhooks map[string]string) Option {
	return func(s *Service) {
		s.webhooks = webhooks
	}
}

// WithDefaultWebhook sets the fallback webhook URL.
func WithDefaultWebhook(url string) Option {
	return func(s *Service) {
		s.defaultWebhook = url
	}
}

// WithWebhookTimeout sets the per-delivery timeout.
func WithWebhookTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.webhookTimeout = timeout
		}
	}
}

// WithClock sets the clock used for issue stamping and backoff.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDeliverer replaces the outbound deliverer. Tests inject fakes here.
func WithDeliverer(d gateway.Deliverer) Option {
	return func(s *Service) {
		s.deliverer = d
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		capacity:        model.DefaultCapacity,
		maxAttempts:     5,
		streamSize:      defaultStreamSize,
		dispatcherCount: defaultDispatcherCount,
		clock:           clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.log == nil {
		s.log = logger.Get().Named("app")
	}

	s.log.Info(ctx, "starting challenge service...")

	s.eventStream = stream.NewInMemoryStream(stream.WithCapacity(s.streamSize))

	if s.storePath != "" {
		bolt, err := repository.NewBoltStore(s.storePath,
			repository.WithClock(s.clock),
			repository.WithPublisher(s.eventStream),
		)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = bolt
		s.log.Info(ctx, "using bbolt store", logger.String("path", s.storePath))
	} else {
		s.store = repository.NewMemStore(
			repository.WithClock(s.clock),
			repository.WithPublisher(s.eventStream),
		)
		s.log.Info(ctx, "using in-memory store")
	}

	s.acc = accumulator.New(s.store,
		accumulator.WithCapacity(s.capacity),
		accumulator.WithMaxAttempts(s.maxAttempts),
		accumulator.WithClock(s.clock),
		accumulator.WithLogger(s.log.Named("accumulator")),
	)

	if s.deliverer == nil {
		if len(s.webhooks) > 0 || s.defaultWebhook != "" {
			webhookOpts := []gateway.WebhookOption{}
			if s.webhookTimeout > 0 {
				webhookOpts = append(webhookOpts, gateway.WithTimeout(s.webhookTimeout))
			}
			s.deliverer = gateway.NewWebhookDeliverer(webhookOpts...)
		} else {
			s.deliverer = gateway.NewLogDeliverer(s.log.Named("gateway"))
		}
	}

	s.dispatcher = dispatch.New(s.store, s.deliverer, s.eventStream,
		dispatch.WithWorkerCount(s.dispatcherCount),
		dispatch.WithEndpoints(s.webhooks),
		dispatch.WithDefaultEndpoint(s.defaultWebhook),
		dispatch.WithLogger(s.log.Named("dispatch")),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.dispatcher.Start(runCtx)

	s.started = true
	s.log.Info(ctx, "challenge service started",
		logger.Int("capacity", s.capacity),
		logger.Int("dispatchers", s.dispatcherCount),
		logger.Int("streamSize", s.streamSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.log.Info(ctx, "stopping challenge service...")

	// Stop accepting new change events, drain the dispatcher, then cancel.
	if s.eventStream != nil {
		_ = s.eventStream.Close()
	}

	if s.dispatcher != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
		if err := s.dispatcher.Shutdown(shutdownCtx); err != nil {
			s.log.Warn(ctx, "dispatcher shutdown", logger.Error(err))
		}
		cancel()
	}

	if s.cancel != nil {
		s.cancel()
	}

	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.log.Info(ctx, "challenge service stopped")
}

// IssueChallenge creates and persists a new challenge for the team.
func (s *Service) IssueChallenge(ctx context.Context, team, initiator string) (*model.Challenge, error) {
	c := &model.Challenge{
		ID:        uuid.NewString(),
		Team:      team,
		Initiator: initiator,
	}

	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("issue challenge: %w", err)
	}

	metrics.RecordChallengeIssued()
	s.log.Debug(ctx, "challenge issued",
		logger.String("challengeID", c.ID),
		logger.String("team", team),
		logger.String("initiator", initiator),
	)

	return c, nil
}

// SubmitResponse applies one responder's pong to a challenge.
func (s *Service) SubmitResponse(ctx context.Context, challengeID, responderID string, observedTS int64) (accumulator.Receipt, error) {
	return s.acc.Submit(ctx, challengeID, responderID, observedTS)
}

// GetChallenge returns the current record.
func (s *Service) GetChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	return s.store.Get(ctx, id)
}

// Scoreboard composes the ranked summary of a closed challenge.
func (s *Service) Scoreboard(ctx context.Context, id string) (scoreboard.Summary, string, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return scoreboard.Summary{}, "", err
	}
	if !c.Closed() {
		return scoreboard.Summary{}, "", fmt.Errorf("%w: %s", scoreboard.ErrNotClosed, id)
	}

	summary := scoreboard.Compose(c)
	return summary, scoreboard.Render(summary), nil
}

// Archive removes a processed challenge record.
func (s *Service) Archive(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"capacity":    s.capacity,
		"dispatchers": s.dispatcherCount,
	}

	if s.started {
		stats["streamDepth"] = s.eventStream.Len(ctx)
		if counter, ok := s.store.(interface{ Count(ctx context.Context) int }); ok {
			stats["challenges"] = counter.Count(ctx)
		}
	}

	return stats
}
