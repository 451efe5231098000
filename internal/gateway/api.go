// ABOUTME: HTTP API handlers for commands, state snapshots, and standalone drafts
// ABOUTME: Maps dispatch error kinds onto HTTP status codes

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chime-sh/chime/internal/dispatch"
	"github.com/chime-sh/chime/internal/metrics"
	"github.com/chime-sh/chime/internal/store"
	"github.com/chime-sh/chime/internal/timeparse"
)

// CommandRequest is the JSON request body for POST /api/command.
type CommandRequest struct {
	Text string `json:"text"`
}

// CommandResponse is the JSON response for POST /api/command. On failure,
// Error describes the failing action and Results holds whatever committed
// before it — already-applied actions are never rolled back.
type CommandResponse struct {
	Results []dispatch.Result `json:"results"`
	State   *store.Snapshot   `json:"state"`
	Error   string            `json:"error,omitempty"`
}

// DraftRequest is the JSON request body for POST /api/draft.
type DraftRequest struct {
	Instructions string `json:"instructions"`
}

// handleCommand handles POST /api/command. The text is interpreted into
// actions by the external model and dispatched in order; the response
// carries the executed results plus a full state snapshot.
func (g *Gateway) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()

	req, err := parseCommandRequest(r.Body)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Interpretation happens before any mutation; a collaborator failure
	// applies nothing.
	reminders := g.store.ListReminders(r.Context())
	actions, err := g.interpreter.Interpret(r.Context(), req.Text, reminders)
	if err != nil {
		metrics.CommandDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		g.logger.Error("interpretation failed", "error", err)
		g.sendJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	results, err := g.dispatcher.Dispatch(r.Context(), req.Text, actions)
	if err != nil {
		metrics.CommandDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		g.writeJSON(w, statusForError(err), CommandResponse{
			Results: results,
			State:   g.store.Snapshot(r.Context()),
			Error:   err.Error(),
		})
		return
	}

	metrics.CommandDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	g.writeJSON(w, http.StatusOK, CommandResponse{
		Results: results,
		State:   g.store.Snapshot(r.Context()),
	})
}

// handleState handles GET /api/state, returning the full store contents.
func (g *Gateway) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	g.writeJSON(w, http.StatusOK, g.store.Snapshot(r.Context()))
}

// handleDraft handles POST /api/draft: compose an email from instructions
// without persisting it (unlike the draft_email action).
func (g *Gateway) handleDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Instructions) == "" {
		g.sendJSONError(w, http.StatusBadRequest, "instructions are required")
		return
	}

	draft, err := g.composer.Compose(r.Context(), req.Instructions)
	if err != nil {
		g.logger.Error("composition failed", "error", err)
		g.sendJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	g.writeJSON(w, http.StatusOK, draft)
}

// statusForError maps error kinds onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrCollaborator):
		return http.StatusBadGateway
	case errors.Is(err, dispatch.ErrEmptyActionList),
		errors.Is(err, dispatch.ErrUnsupportedAction),
		errors.Is(err, store.ErrInvalidArgument),
		errors.Is(err, timeparse.ErrInvalidExpression),
		errors.Is(err, timeparse.ErrPastTime):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseCommandRequest parses and validates a CommandRequest from the given reader.
func parseCommandRequest(r io.Reader) (*CommandRequest, error) {
	var req CommandRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("text is required")
	}
	return &req, nil
}

// writeJSON writes a JSON response with the given status.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
