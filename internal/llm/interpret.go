// ABOUTME: Translates free-text commands into structured action lists
// ABOUTME: Passes current reminders as context so the model can resolve ids

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chime-sh/chime/internal/dispatch"
	"github.com/chime-sh/chime/internal/metrics"
	"github.com/chime-sh/chime/internal/store"
)

const interpretSystemPrompt = `You translate a user's free-text command into a JSON array of actions for a personal assistant. Respond with ONLY the JSON array, no prose, no code fences.

Each action is {"kind": "...", "payload": {...}}. Supported kinds and payload fields:
- add_task: description (string), dueDate (optional string, natural language or YYYY-MM-DD)
- add_note: body (string)
- schedule_reminder: message (string), dueTime (string, natural language like "in 5 minutes" or ISO-8601)
- update_reminder: reminderId (string, from the reminder context), message (optional), dueTime (optional)
- cancel_reminder: reminderId (string, from the reminder context)
- draft_email: instructions (string)

When the user refers to an existing reminder, resolve it to its id using the reminder context. Emit actions in the order they should execute.`

// reminderContext is the compact view of a reminder sent to the model.
type reminderContext struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	DueTime string `json:"due_time"`
	Status  string `json:"status"`
}

// Interpret translates text into an ordered action list. reminders is the
// current reminder set, passed so the model can resolve references like
// "cancel the stretch reminder" to an id. A model failure or unparseable
// output is a collaborator failure; nothing is applied.
func (c *Client) Interpret(ctx context.Context, text string, reminders []*store.Reminder) ([]dispatch.Action, error) {
	rctx := make([]reminderContext, 0, len(reminders))
	for _, r := range reminders {
		rctx = append(rctx, reminderContext{
			ID:      r.ID,
			Message: r.Message,
			DueTime: r.DueTime.Format(time.RFC3339),
			Status:  r.Status,
		})
	}

	contextJSON, err := json.Marshal(rctx)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding reminder context: %v", dispatch.ErrCollaborator, err)
	}

	user := fmt.Sprintf("Current reminders:\n%s\n\nCommand:\n%s", contextJSON, text)

	start := time.Now()
	raw, err := c.complete(ctx, interpretSystemPrompt, user)
	if err != nil {
		metrics.ModelCallDuration.WithLabelValues("interpret", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %v", dispatch.ErrCollaborator, err)
	}
	metrics.ModelCallDuration.WithLabelValues("interpret", "ok").Observe(time.Since(start).Seconds())

	var actions []dispatch.Action
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &actions); err != nil {
		c.logger.Warn("model returned unparseable actions", "output", truncate(raw, 200))
		return nil, fmt.Errorf("%w: unparseable action list: %v", dispatch.ErrCollaborator, err)
	}

	return actions, nil
}
