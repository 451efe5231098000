// ABOUTME: In-memory Store implementation guarding all state with a RWMutex
// ABOUTME: Owns identity generation, creation timestamps, and draft FIFO eviction

package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDraftCap is the number of email drafts retained before FIFO eviction.
const DefaultDraftCap = 10

// Store is the single authoritative in-memory collection of tasks, notes,
// reminders, and email drafts. All methods are safe for concurrent use;
// every returned entity is a copy, so callers can never mutate store state
// through a returned pointer.
type Store struct {
	mu            sync.RWMutex
	tasks         map[string]*Task
	taskOrder     []string
	notes         map[string]*Note
	noteOrder     []string
	reminders     map[string]*Reminder
	reminderOrder []string
	drafts        []*EmailDraft // insertion order, oldest first
	draftCap      int

	// now is swappable for tests
	now func() time.Time
}

// New creates an empty store. A draftCap of zero or less uses DefaultDraftCap.
func New(draftCap int) *Store {
	if draftCap <= 0 {
		draftCap = DefaultDraftCap
	}
	return &Store{
		tasks:     make(map[string]*Task),
		notes:     make(map[string]*Note),
		reminders: make(map[string]*Reminder),
		draftCap:  draftCap,
		now:       time.Now,
	}
}

// AddTask creates a task. The due date is optional and recorded as given.
func (s *Store) AddTask(ctx context.Context, description string, dueDate *time.Time) (*Task, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := &Task{
		ID:          uuid.New().String(),
		Description: description,
		CreatedAt:   s.now(),
	}
	if dueDate != nil {
		d := *dueDate
		task.DueDate = &d
	}
	s.tasks[task.ID] = task
	s.taskOrder = append(s.taskOrder, task.ID)

	return copyTask(task), nil
}

// AddNote creates a note.
func (s *Store) AddNote(ctx context.Context, body string) (*Note, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	note := &Note{
		ID:        uuid.New().String(),
		Body:      body,
		CreatedAt: s.now(),
	}
	s.notes[note.ID] = note
	s.noteOrder = append(s.noteOrder, note.ID)

	return copyNote(note), nil
}

// CreateReminder creates a reminder in the "scheduled" status.
func (s *Store) CreateReminder(ctx context.Context, message string, dueTime time.Time) (*Reminder, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rem := &Reminder{
		ID:        uuid.New().String(),
		Message:   message,
		DueTime:   dueTime,
		Status:    ReminderStatusScheduled,
		CreatedAt: s.now(),
	}
	s.reminders[rem.ID] = rem
	s.reminderOrder = append(s.reminderOrder, rem.ID)

	return copyReminder(rem), nil
}

// GetReminder returns the reminder with the given id.
func (s *Store) GetReminder(ctx context.Context, id string) (*Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rem, ok := s.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	return copyReminder(rem), nil
}

// UpdateReminder mutates a reminder in place. A non-nil message replaces the
// message; a non-nil dueTime replaces the due time and resets the status to
// "scheduled" (the caller is responsible for re-arming its timer).
func (s *Store) UpdateReminder(ctx context.Context, id string, message *string, dueTime *time.Time) (*Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rem, ok := s.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}

	if message != nil {
		if strings.TrimSpace(*message) == "" {
			return nil, fmt.Errorf("%w: message must not be blank", ErrInvalidArgument)
		}
		rem.Message = *message
	}
	if dueTime != nil {
		rem.DueTime = *dueTime
		rem.Status = ReminderStatusScheduled
	}

	return copyReminder(rem), nil
}

// DeleteReminder removes a reminder and returns it as it existed immediately
// before removal.
func (s *Store) DeleteReminder(ctx context.Context, id string) (*Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rem, ok := s.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}

	delete(s.reminders, id)
	for i, rid := range s.reminderOrder {
		if rid == id {
			s.reminderOrder = append(s.reminderOrder[:i], s.reminderOrder[i+1:]...)
			break
		}
	}

	return copyReminder(rem), nil
}

// MarkReminderDue transitions a reminder to the "due" status. Returns
// ErrNotFound if the reminder was deleted before its timer fired.
func (s *Store) MarkReminderDue(ctx context.Context, id string) (*Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rem, ok := s.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	rem.Status = ReminderStatusDue

	return copyReminder(rem), nil
}

// ListReminders returns all reminders in creation order.
func (s *Store) ListReminders(ctx context.Context) []*Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Reminder, 0, len(s.reminderOrder))
	for _, id := range s.reminderOrder {
		out = append(out, copyReminder(s.reminders[id]))
	}
	return out
}

// AddDraft stores a composed email draft, evicting the oldest draft once the
// retention cap is exceeded.
func (s *Store) AddDraft(ctx context.Context, instructions, subject, body, bodyHTML string) (*EmailDraft, error) {
	if strings.TrimSpace(instructions) == "" {
		return nil, fmt.Errorf("%w: instructions are required", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := &EmailDraft{
		ID:           uuid.New().String(),
		Instructions: instructions,
		Subject:      subject,
		Body:         body,
		BodyHTML:     bodyHTML,
		CreatedAt:    s.now(),
	}
	s.drafts = append(s.drafts, draft)
	if len(s.drafts) > s.draftCap {
		s.drafts = s.drafts[len(s.drafts)-s.draftCap:]
	}

	return copyDraft(draft), nil
}

// Snapshot returns a deep copy of the full store contents.
func (s *Store) Snapshot(ctx context.Context) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Tasks:     make([]*Task, 0, len(s.taskOrder)),
		Notes:     make([]*Note, 0, len(s.noteOrder)),
		Reminders: make([]*Reminder, 0, len(s.reminderOrder)),
		Drafts:    make([]*EmailDraft, 0, len(s.drafts)),
	}
	for _, id := range s.taskOrder {
		snap.Tasks = append(snap.Tasks, copyTask(s.tasks[id]))
	}
	for _, id := range s.noteOrder {
		snap.Notes = append(snap.Notes, copyNote(s.notes[id]))
	}
	for _, id := range s.reminderOrder {
		snap.Reminders = append(snap.Reminders, copyReminder(s.reminders[id]))
	}
	for _, d := range s.drafts {
		snap.Drafts = append(snap.Drafts, copyDraft(d))
	}
	return snap
}

func copyTask(t *Task) *Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}

func copyNote(n *Note) *Note {
	c := *n
	return &c
}

func copyReminder(r *Reminder) *Reminder {
	c := *r
	return &c
}

func copyDraft(d *EmailDraft) *EmailDraft {
	c := *d
	return &c
}
