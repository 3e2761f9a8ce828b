package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/pong/internal/adapters/repository"
	"github.com/okian/pong/internal/domain/scoreboard"
)

// ChallengesHandler handles challenge creation and read requests.
type ChallengesHandler struct {
	deps Dependencies
}

// NewChallengesHandler creates a new challenges handler.
func NewChallengesHandler(deps Dependencies) *ChallengesHandler {
	return &ChallengesHandler{deps: deps}
}

// issueRequest mirrors the inbound issue-challenge shape.
type issueRequest struct {
	Team      string `json:"team"`
	Initiator string `json:"initiator"`
}

func (r issueRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Team) == "":
		return errors.New("missing team")
	case strings.TrimSpace(r.Initiator) == "":
		return errors.New("missing initiator")
	}
	return nil
}

type issueResponse struct {
	ChallengeID string `json:"challenge_id"`
	Team        string `json:"team"`
	Initiator   string `json:"initiator"`
	IssuedAtMS  int64  `json:"issued_at_ms"`
}

// challengeView is the read shape for GET /challenges/{id}.
type challengeView struct {
	ChallengeID string           `json:"challenge_id"`
	Team        string           `json:"team"`
	Initiator   string           `json:"initiator"`
	IssuedAtMS  int64            `json:"issued_at_ms"`
	Status      string           `json:"status"`
	Responses   map[string]int64 `json:"responses"`
}

// HandleChallenges handles POST /challenges requests.
func (h *ChallengesHandler) HandleChallenges(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_challenge"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	c, err := h.deps.IssueChallenge(r.Context(), req.Team, req.Initiator)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusCreated, issueResponse{
		ChallengeID: c.ID,
		Team:        c.Team,
		Initiator:   c.Initiator,
		IssuedAtMS:  c.IssuedAt,
	})
}

// HandleGetChallenge handles GET /challenges/{id} requests.
func (h *ChallengesHandler) HandleGetChallenge(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_challenge"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	c, err := h.deps.GetChallenge(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, challengeView{
		ChallengeID: c.ID,
		Team:        c.Team,
		Initiator:   c.Initiator,
		IssuedAtMS:  c.IssuedAt,
		Status:      string(c.Status),
		Responses:   c.Responses,
	})
}

type scoreboardResponse struct {
	scoreboard.Summary
	Text string `json:"text"`
}

// HandleGetScoreboard handles GET /challenges/{id}/scoreboard requests.
func (h *ChallengesHandler) HandleGetScoreboard(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_scoreboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	summary, text, err := h.deps.Scoreboard(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
		case errors.Is(err, scoreboard.ErrNotClosed):
			writeError(w, http.StatusConflict, "not_closed", Wrap(op, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}

	writeJSON(w, http.StatusOK, scoreboardResponse{Summary: summary, Text: text})
}
