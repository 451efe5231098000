// ABOUTME: Executes ordered action lists against the store and scheduler
// ABOUTME: Strict in-order execution, first failure aborts, no rollback

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chime-sh/chime/internal/broadcast"
	"github.com/chime-sh/chime/internal/metrics"
	"github.com/chime-sh/chime/internal/scheduler"
	"github.com/chime-sh/chime/internal/store"
	"github.com/chime-sh/chime/internal/timeparse"
)

// Composer is the external email-composition collaborator.
type Composer interface {
	Compose(ctx context.Context, instructions string) (*ComposedEmail, error)
}

// ComposedEmail is the result of a composition call.
type ComposedEmail struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	BodyHTML string `json:"body_html,omitempty"`
}

// Result is the outcome of one executed action.
type Result struct {
	Kind     string            `json:"kind"`
	Task     *store.Task       `json:"task,omitempty"`
	Note     *store.Note       `json:"note,omitempty"`
	Reminder *store.Reminder   `json:"reminder,omitempty"`
	Draft    *store.EmailDraft `json:"draft,omitempty"`
}

// Dispatcher applies action lists to the store, arming and cancelling
// reminder timers as a side effect. A mutex serializes dispatches: one
// request's action list runs to completion before the next starts, which is
// the only supported write pattern for the store.
type Dispatcher struct {
	mu sync.Mutex

	store    *store.Store
	sched    *scheduler.Scheduler
	bus      *broadcast.Broadcaster
	resolver *timeparse.Resolver
	composer Composer
	logger   *slog.Logger

	// now is swappable for tests
	now func() time.Time
}

// New creates a dispatcher. Pass nil logger for default.
func New(s *store.Store, sched *scheduler.Scheduler, bus *broadcast.Broadcaster, resolver *timeparse.Resolver, composer Composer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:    s,
		sched:    sched,
		bus:      bus,
		resolver: resolver,
		composer: composer,
		logger:   logger.With("component", "dispatcher"),
		now:      time.Now,
	}
}

// Dispatch executes actions strictly in input order. rawText is the original
// command text; text-bearing actions with an empty payload field fall back
// to it. Execution stops at the first failing action: everything before it
// stays committed and the returned ActionError names the failing index.
func (d *Dispatcher) Dispatch(ctx context.Context, rawText string, actions []Action) ([]Result, error) {
	if len(actions) == 0 {
		return nil, ErrEmptyActionList
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	results := make([]Result, 0, len(actions))
	for i, action := range actions {
		result, err := d.execute(ctx, rawText, action)
		if err != nil {
			metrics.ActionsTotal.WithLabelValues(action.Kind, "error").Inc()
			d.logger.Warn("action failed",
				"index", i,
				"kind", action.Kind,
				"error", err)
			return results, &ActionError{Index: i, Kind: action.Kind, Err: err}
		}
		metrics.ActionsTotal.WithLabelValues(action.Kind, "ok").Inc()
		results = append(results, *result)
	}

	return results, nil
}

// execute runs a single action. The switch is exhaustive over the known
// kinds; anything else is ErrUnsupportedAction.
func (d *Dispatcher) execute(ctx context.Context, rawText string, action Action) (*Result, error) {
	switch action.Kind {
	case KindAddTask:
		return d.addTask(ctx, rawText, action.Payload)
	case KindAddNote:
		return d.addNote(ctx, rawText, action.Payload)
	case KindScheduleReminder:
		return d.scheduleReminder(ctx, action.Payload)
	case KindUpdateReminder:
		return d.updateReminder(ctx, action.Payload)
	case KindCancelReminder:
		return d.cancelReminder(ctx, action.Payload)
	case KindDraftEmail:
		return d.draftEmail(ctx, rawText, action.Payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, action.Kind)
	}
}

func (d *Dispatcher) addTask(ctx context.Context, rawText string, p Payload) (*Result, error) {
	description := p.Description
	if description == "" {
		description = rawText
	}

	var dueDate *time.Time
	if p.DueDate != "" {
		// Task due dates are date-only: normalized to local midnight, and
		// never constrained to the future.
		resolved, err := d.resolver.ResolveDate(p.DueDate, d.now())
		if err != nil {
			return nil, err
		}
		dueDate = &resolved
	}

	task, err := d.store.AddTask(ctx, description, dueDate)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindAddTask, Task: task}, nil
}

func (d *Dispatcher) addNote(ctx context.Context, rawText string, p Payload) (*Result, error) {
	body := p.Body
	if body == "" {
		body = rawText
	}

	note, err := d.store.AddNote(ctx, body)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindAddNote, Note: note}, nil
}

func (d *Dispatcher) scheduleReminder(ctx context.Context, p Payload) (*Result, error) {
	if strings.TrimSpace(p.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", store.ErrInvalidArgument)
	}
	if strings.TrimSpace(p.DueTime) == "" {
		return nil, fmt.Errorf("%w: dueTime is required", store.ErrInvalidArgument)
	}

	dueTime, err := d.resolver.Resolve(p.DueTime, d.now(), true)
	if err != nil {
		return nil, err
	}

	rem, err := d.store.CreateReminder(ctx, p.Message, dueTime)
	if err != nil {
		return nil, err
	}

	// Publish creation before arming so subscribers see created before a
	// possible immediate due (grace window allows slightly-past times).
	d.bus.Publish(broadcast.EventReminderCreated, rem)
	d.sched.Arm(rem)

	return &Result{Kind: KindScheduleReminder, Reminder: rem}, nil
}

func (d *Dispatcher) updateReminder(ctx context.Context, p Payload) (*Result, error) {
	if p.ReminderID == "" {
		return nil, fmt.Errorf("%w: reminderId is required", store.ErrInvalidArgument)
	}

	var message *string
	if p.Message != "" {
		message = &p.Message
	}

	var dueTime *time.Time
	if p.DueTime != "" {
		resolved, err := d.resolver.Resolve(p.DueTime, d.now(), true)
		if err != nil {
			return nil, err
		}
		dueTime = &resolved
	}

	rem, err := d.store.UpdateReminder(ctx, p.ReminderID, message, dueTime)
	if err != nil {
		return nil, err
	}

	// Re-arm only when the due time changed; a message-only update leaves
	// the existing timer (and status) untouched.
	if dueTime != nil {
		d.sched.Arm(rem)
	}

	d.bus.Publish(broadcast.EventReminderUpdated, rem)
	return &Result{Kind: KindUpdateReminder, Reminder: rem}, nil
}

func (d *Dispatcher) cancelReminder(ctx context.Context, p Payload) (*Result, error) {
	if p.ReminderID == "" {
		return nil, fmt.Errorf("%w: reminderId is required", store.ErrInvalidArgument)
	}

	rem, err := d.store.DeleteReminder(ctx, p.ReminderID)
	if err != nil {
		return nil, err
	}
	d.sched.Cancel(rem.ID)

	d.bus.Publish(broadcast.EventReminderDeleted, rem)
	return &Result{Kind: KindCancelReminder, Reminder: rem}, nil
}

func (d *Dispatcher) draftEmail(ctx context.Context, rawText string, p Payload) (*Result, error) {
	instructions := p.Instructions
	if instructions == "" {
		instructions = rawText
	}
	if strings.TrimSpace(instructions) == "" {
		return nil, fmt.Errorf("%w: instructions are required", store.ErrInvalidArgument)
	}

	// The composition call is external I/O; the store's lock is not held
	// while it is in flight.
	composed, err := d.composer.Compose(ctx, instructions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollaborator, err)
	}

	draft, err := d.store.AddDraft(ctx, instructions, composed.Subject, composed.Body, composed.BodyHTML)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindDraftEmail, Draft: draft}, nil
}
