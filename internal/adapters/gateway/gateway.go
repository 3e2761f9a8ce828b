// Package gateway delivers rendered notification payloads to a team's
// configured endpoint.
//
// Delivery is best-effort and fire-and-forget from the core's point of
// view: the challenge state is durably committed before any delivery is
// attempted, and a failed delivery is logged and dropped, never retried
// into the record.
package gateway

import (
	"context"

	"github.com/okian/pong/internal/domain/scoreboard"
	"github.com/okian/pong/pkg/logger"
)

// Payload kinds.
const (
	KindChallenge  = "challenge"
	KindScoreboard = "scoreboard"
)

// Payload is the outbound notification body.
type Payload struct {
	Kind        string `json:"kind"`
	ChallengeID string `json:"challenge_id"`
	Team        string `json:"team"`
	Text        string `json:"text"`

	// Summary is present on scoreboard payloads only.
	Summary *scoreboard.Summary `json:"summary,omitempty"`
}

// Deliverer sends a payload to an endpoint. Errors are observed by logging
// and metrics only, never by the core's correctness logic.
type Deliverer interface {
	Deliver(ctx context.Context, endpoint string, p Payload) error
}

// LogDeliverer writes payloads to the log. Used in development and for
// teams without a configured endpoint.
type LogDeliverer struct {
	log logger.Logger
}

// NewLogDeliverer creates a deliverer that only logs.
func NewLogDeliverer(log logger.Logger) *LogDeliverer {
	if log == nil {
		log = logger.Get().Named("gateway")
	}
	return &LogDeliverer{log: log}
}

// Deliver logs the payload.
func (d *LogDeliverer) Deliver(ctx context.Context, endpoint string, p Payload) error {
	d.log.Info(ctx, "delivering notification",
		logger.String("kind", p.Kind),
		logger.String("challengeID", p.ChallengeID),
		logger.String("team", p.Team),
		logger.String("endpoint", endpoint),
		logger.String("text", p.Text),
	)
	return nil
}
