// Package api declares the HTTP intake surface and route registration.
//
// This layer is deliberately thin: it validates shapes, maps requests onto
// the core service and translates outcomes to status codes. Platform
// authentication and signature validation sit in front of it, out of
// scope here.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/pong/internal/domain/accumulator"
	"github.com/okian/pong/internal/domain/model"
	"github.com/okian/pong/internal/domain/scoreboard"
)

// Dependencies required by the HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the app service.
type Dependencies interface {
	// IssueChallenge creates and persists a new challenge for the team.
	IssueChallenge(ctx context.Context, team, initiator string) (*model.Challenge, error)

	// SubmitResponse applies one responder's pong to a challenge.
	SubmitResponse(ctx context.Context, challengeID, responderID string, observedTS int64) (accumulator.Receipt, error)

	// GetChallenge returns the current record.
	GetChallenge(ctx context.Context, id string) (*model.Challenge, error)

	// Scoreboard composes the ranked summary of a closed challenge.
	Scoreboard(ctx context.Context, id string) (scoreboard.Summary, string, error)
}

// StatsProvider exposes service statistics for monitoring.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the intake API.
type Server struct {
	challengesHandler *ChallengesHandler
	responsesHandler  *ResponsesHandler
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		challengesHandler: NewChallengesHandler(deps),
		responsesHandler:  NewResponsesHandler(deps),
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/challenges", MetricsMiddleware(s.challengesHandler.HandleChallenges, "challenges"))
	mux.HandleFunc("/challenges/", MetricsMiddleware(s.route, "challenges"))
}

// route fans /challenges/{id}[/...] out to the right handler.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	id, rest := splitChallengePath(r.URL.Path)
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch rest {
	case "":
		s.challengesHandler.HandleGetChallenge(w, r, id)
	case "responses":
		s.responsesHandler.HandlePostResponse(w, r, id)
	case "scoreboard":
		s.challengesHandler.HandleGetScoreboard(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
