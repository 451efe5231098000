// ABOUTME: Reminder scheduler owning one wall-clock timer per scheduled reminder
// ABOUTME: Drives the scheduled->due transition and publishes reminder_due events

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chime-sh/chime/internal/broadcast"
	"github.com/chime-sh/chime/internal/metrics"
	"github.com/chime-sh/chime/internal/store"
)

// Scheduler maps reminder ids to their outstanding one-shot timers. The map
// is the single source of truth for timer existence: a reminder has a live
// timer if and only if its id is present here. Cancellation of an old timer
// always happens before a new timer for the same id is armed, so a reminder
// can never fire twice for one due time.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool

	store  *store.Store
	bus    *broadcast.Broadcaster
	logger *slog.Logger
}

// New creates a scheduler publishing due events to bus. Pass nil logger for
// default.
func New(s *store.Store, bus *broadcast.Broadcaster, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		store:  s,
		bus:    bus,
		logger: logger.With("component", "scheduler"),
	}
}

// Arm (re)establishes the timer for a reminder. Any existing timer for the
// same id is cancelled first. A due time at or before now is transitioned to
// due immediately, without arming a timer.
func (s *Scheduler) Arm(rem *store.Reminder) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelLocked(rem.ID)

	delay := time.Until(rem.DueTime)
	if delay <= 0 {
		s.mu.Unlock()
		// Already past: commit the transition synchronously.
		s.transition(rem.ID)
		return
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.fire(rem.ID, t)
	})
	s.timers[rem.ID] = t
	s.mu.Unlock()

	s.logger.Debug("timer armed", "reminder_id", rem.ID, "due_in", delay)
}

// Cancel stops and removes the timer for id, if one exists. Cancelling a
// reminder with no timer (never armed, already fired, or already cancelled)
// is a no-op.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(id)
}

// cancelLocked stops and removes the timer for id. Must be called with mu held.
func (s *Scheduler) cancelLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// HasTimer reports whether a live timer exists for id.
func (s *Scheduler) HasTimer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// fire is the timer expiry callback. The identity check against the map
// entry discards stale fires: if Arm replaced this timer while the callback
// was waiting on the lock, the map holds a different timer and this fire
// must not commit anything.
func (s *Scheduler) fire(id string, t *time.Timer) {
	s.mu.Lock()
	cur, ok := s.timers[id]
	if !ok || cur != t {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.mu.Unlock()

	s.transition(id)
}

// transition commits the scheduled->due status change and publishes the due
// event. Errors never escape the scheduler boundary: a reminder deleted
// before its fire is logged and ignored, and once the status transition has
// committed the reminder is due regardless of event delivery.
func (s *Scheduler) transition(id string) {
	rem, err := s.store.MarkReminderDue(context.Background(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("due transition failed", "reminder_id", id, "error", err)
		}
		return
	}

	s.logger.Info("reminder due", "reminder_id", id, "message", rem.Message)
	metrics.RemindersFired.Inc()
	s.bus.Publish(broadcast.EventReminderDue, rem)
}

// Close stops all outstanding timers. The scheduler accepts no new arms
// afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.closed = true
}
