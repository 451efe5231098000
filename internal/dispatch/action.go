// ABOUTME: Action variant type shared by the interpreter and the dispatcher
// ABOUTME: One kind tag plus a payload whose fields are per-kind

package dispatch

import (
	"errors"
	"fmt"
)

// Action kinds the dispatcher understands.
const (
	KindAddTask          = "add_task"
	KindAddNote          = "add_note"
	KindScheduleReminder = "schedule_reminder"
	KindUpdateReminder   = "update_reminder"
	KindCancelReminder   = "cancel_reminder"
	KindDraftEmail       = "draft_email"
)

// ErrUnsupportedAction is returned for an unrecognized action kind.
var ErrUnsupportedAction = errors.New("unsupported action")

// ErrEmptyActionList is returned when a dispatch request decodes to zero actions.
var ErrEmptyActionList = errors.New("empty action list")

// ErrCollaborator wraps failures of external collaborators (interpretation
// or email composition).
var ErrCollaborator = errors.New("collaborator failure")

// Action is one structured instruction against the store. Kind selects which
// payload fields are meaningful; the dispatcher's switch over Kind is
// exhaustive, with unknown kinds rejected.
type Action struct {
	Kind    string  `json:"kind"`
	Payload Payload `json:"payload"`
}

// Payload carries the union of per-kind fields. Field names mirror the wire
// contract with the interpreter.
type Payload struct {
	Description  string `json:"description,omitempty"`  // add_task
	DueDate      string `json:"dueDate,omitempty"`      // add_task (optional)
	Body         string `json:"body,omitempty"`         // add_note
	Message      string `json:"message,omitempty"`      // schedule_reminder, update_reminder
	DueTime      string `json:"dueTime,omitempty"`      // schedule_reminder, update_reminder
	ReminderID   string `json:"reminderId,omitempty"`   // update_reminder, cancel_reminder
	Instructions string `json:"instructions,omitempty"` // draft_email
}

// ActionError reports which action in a dispatched list failed and why.
// Actions before Index committed and stay committed.
type ActionError struct {
	Index int
	Kind  string
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
