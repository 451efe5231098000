// ABOUTME: Store data types and errors for chime's in-memory state
// ABOUTME: Defines Task, Note, Reminder, EmailDraft and the store error sentinels

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument is returned when a required field is missing or blank
var ErrInvalidArgument = errors.New("invalid argument")

// Reminder status values
const (
	ReminderStatusScheduled = "scheduled" // timer armed, not yet fired
	ReminderStatusDue       = "due"       // timer fired
)

// Task is a to-do item. Tasks are immutable once created.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Note is a free-form text note. Notes are immutable once created.
type Note struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Reminder is a message scheduled to fire at an absolute wall-clock time.
// Status transitions from "scheduled" to "due" when its timer fires; an
// update with a new due time resets it to "scheduled".
type Reminder struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	DueTime   time.Time `json:"due_time"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// EmailDraft is a composed email kept for later copy-out. The store retains
// only the most recent drafts (FIFO eviction).
type EmailDraft struct {
	ID           string    `json:"id"`
	Instructions string    `json:"instructions"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	BodyHTML     string    `json:"body_html,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Snapshot is an immutable copy of the full store contents, suitable for
// returning to external consumers.
type Snapshot struct {
	Tasks     []*Task       `json:"tasks"`
	Notes     []*Note       `json:"notes"`
	Reminders []*Reminder   `json:"reminders"`
	Drafts    []*EmailDraft `json:"drafts"`
}
