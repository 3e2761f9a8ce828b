package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/pong/internal/adapters/repository"
	"github.com/okian/pong/internal/domain/accumulator"
)

// ResponsesHandler handles response submissions.
type ResponsesHandler struct {
	deps Dependencies
}

// NewResponsesHandler creates a new responses handler.
func NewResponsesHandler(deps Dependencies) *ResponsesHandler {
	return &ResponsesHandler{deps: deps}
}

// respondRequest mirrors the inbound respond shape. The timestamp is the
// source platform's event time in milliseconds, not the receive time.
type respondRequest struct {
	ResponderID string `json:"responder_id"`
	ObservedTS  int64  `json:"observed_timestamp"`
}

func (r respondRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ResponderID) == "":
		return errors.New("missing responder_id")
	case r.ObservedTS <= 0:
		return errors.New("missing observed_timestamp")
	}
	return nil
}

type respondResponse struct {
	Status    string `json:"status"`
	Rank      int    `json:"rank,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Closed    bool   `json:"closed,omitempty"`
}

// HandlePostResponse handles POST /challenges/{id}/responses requests.
func (h *ResponsesHandler) HandlePostResponse(w http.ResponseWriter, r *http.Request, challengeID string) {
	const op = "api.post_response"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.SubmitResponse(r.Context(), challengeID, req.ResponderID, req.ObservedTS)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
		case errors.Is(err, accumulator.ErrContention):
			// Transient: the caller may retry the whole request.
			writeError(w, http.StatusServiceUnavailable, "contention", Wrap(op, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}

	switch receipt.Outcome {
	case accumulator.OutcomeAccepted:
		writeJSON(w, http.StatusOK, respondResponse{
			Status:    string(accumulator.OutcomeAccepted),
			Rank:      receipt.Rank,
			LatencyMS: receipt.LatencyMS,
			Closed:    receipt.Closed,
		})
	case accumulator.OutcomeAlreadyResponded:
		// Success-shaped: duplicate deliveries are not failures.
		writeJSON(w, http.StatusOK, respondResponse{Status: string(accumulator.OutcomeAlreadyResponded)})
	case accumulator.OutcomeTooLate:
		writeError(w, http.StatusConflict, "too_late", NewKind(op, errors.New("capacity already reached")))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, errors.New("unknown outcome")))
	}
}
