// ABOUTME: Tests for reminder timer lifecycle: arm, fire, cancel, re-arm
// ABOUTME: Verifies single-timer-per-id and idempotent cancellation

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chime-sh/chime/internal/broadcast"
	"github.com/chime-sh/chime/internal/store"
)

// setupScheduler creates a fresh store, broadcaster, and scheduler plus a
// subscribed event channel.
func setupScheduler(t *testing.T) (*store.Store, *Scheduler, <-chan broadcast.Event) {
	t.Helper()

	s := store.New(0)
	bus := broadcast.New(nil)
	sched := New(s, bus, nil)
	t.Cleanup(func() {
		sched.Close()
		bus.Close()
	})

	events, _ := bus.Subscribe(context.Background())
	return s, sched, events
}

// waitForEvent blocks until an event with the given name arrives.
func waitForEvent(t *testing.T, events <-chan broadcast.Event, name string) broadcast.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Name == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", name)
		}
	}
}

func TestArm_FutureReminderHasExactlyOneTimer(t *testing.T) {
	s, sched, _ := setupScheduler(t)

	rem, err := s.CreateReminder(context.Background(), "stretch", time.Now().Add(time.Hour))
	require.NoError(t, err)

	sched.Arm(rem)
	assert.True(t, sched.HasTimer(rem.ID))
}

func TestFire_TransitionsToDueAndPublishes(t *testing.T) {
	s, sched, events := setupScheduler(t)
	ctx := context.Background()

	rem, err := s.CreateReminder(ctx, "stretch", time.Now().Add(20*time.Millisecond))
	require.NoError(t, err)
	sched.Arm(rem)

	ev := waitForEvent(t, events, broadcast.EventReminderDue)
	due, ok := ev.Payload.(*store.Reminder)
	require.True(t, ok)
	assert.Equal(t, rem.ID, due.ID)
	assert.Equal(t, store.ReminderStatusDue, due.Status)

	// Timer entry removed once fired.
	assert.False(t, sched.HasTimer(rem.ID))

	stored, err := s.GetReminder(ctx, rem.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ReminderStatusDue, stored.Status)
}

func TestArm_PastDueTimeFiresSynchronously(t *testing.T) {
	s, sched, events := setupScheduler(t)
	ctx := context.Background()

	rem, err := s.CreateReminder(ctx, "stretch", time.Now().Add(-time.Second))
	require.NoError(t, err)
	sched.Arm(rem)

	// No timer was ever armed; the transition happened inline.
	assert.False(t, sched.HasTimer(rem.ID))

	stored, err := s.GetReminder(ctx, rem.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ReminderStatusDue, stored.Status)

	waitForEvent(t, events, broadcast.EventReminderDue)
}

func TestCancel_Idempotent(t *testing.T) {
	s, sched, _ := setupScheduler(t)

	rem, err := s.CreateReminder(context.Background(), "stretch", time.Now().Add(time.Hour))
	require.NoError(t, err)
	sched.Arm(rem)

	sched.Cancel(rem.ID)
	assert.False(t, sched.HasTimer(rem.ID))

	// Cancelling again, and cancelling an unknown id, are no-ops.
	sched.Cancel(rem.ID)
	sched.Cancel("never-existed")
}

func TestCancel_AfterFireIsNoOp(t *testing.T) {
	s, sched, events := setupScheduler(t)

	rem, err := s.CreateReminder(context.Background(), "stretch", time.Now().Add(10*time.Millisecond))
	require.NoError(t, err)
	sched.Arm(rem)

	waitForEvent(t, events, broadcast.EventReminderDue)
	sched.Cancel(rem.ID)
	assert.False(t, sched.HasTimer(rem.ID))
}

func TestRearm_RapidUpdatesKeepSingleTimer(t *testing.T) {
	s, sched, _ := setupScheduler(t)
	ctx := context.Background()

	rem, err := s.CreateReminder(ctx, "stretch", time.Now().Add(time.Hour))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		due := time.Now().Add(time.Hour + time.Duration(i)*time.Second)
		updated, err := s.UpdateReminder(ctx, rem.ID, nil, &due)
		require.NoError(t, err)
		sched.Arm(updated)
	}

	assert.True(t, sched.HasTimer(rem.ID))
}

func TestRearm_NoDuplicateFires(t *testing.T) {
	s, sched, events := setupScheduler(t)
	ctx := context.Background()

	rem, err := s.CreateReminder(ctx, "stretch", time.Now().Add(60*time.Millisecond))
	require.NoError(t, err)
	sched.Arm(rem)

	// Re-arm repeatedly; each replacement lands well before its predecessor
	// could fire, so exactly one fire survives.
	for i := 0; i < 10; i++ {
		due := time.Now().Add(60 * time.Millisecond)
		updated, err := s.UpdateReminder(ctx, rem.ID, nil, &due)
		require.NoError(t, err)
		sched.Arm(updated)
		time.Sleep(5 * time.Millisecond)
	}

	waitForEvent(t, events, broadcast.EventReminderDue)

	// After the final fire, no stale timer fires again: the reminder stays
	// due and no further due events arrive.
	select {
	case ev := <-events:
		if ev.Name == broadcast.EventReminderDue {
			// A second due for the same arm sequence would mean a duplicate
			// fire slipped through the identity check.
			due := ev.Payload.(*store.Reminder)
			t.Fatalf("duplicate due event for reminder %s", due.ID)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFire_AfterDeleteIsSwallowed(t *testing.T) {
	s, sched, events := setupScheduler(t)
	ctx := context.Background()

	rem, err := s.CreateReminder(ctx, "stretch", time.Now().Add(20*time.Millisecond))
	require.NoError(t, err)
	sched.Arm(rem)

	// Delete from the store without cancelling; the fire finds nothing and
	// publishes nothing.
	_, err = s.DeleteReminder(ctx, rem.ID)
	require.NoError(t, err)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s after delete", ev.Name)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClose_StopsTimersAndRejectsArms(t *testing.T) {
	s, sched, events := setupScheduler(t)
	ctx := context.Background()

	rem, err := s.CreateReminder(ctx, "stretch", time.Now().Add(30*time.Millisecond))
	require.NoError(t, err)
	sched.Arm(rem)
	sched.Close()
	assert.False(t, sched.HasTimer(rem.ID))

	other, err := s.CreateReminder(ctx, "later", time.Now().Add(time.Hour))
	require.NoError(t, err)
	sched.Arm(other)
	assert.False(t, sched.HasTimer(other.ID))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s after close", ev.Name)
	case <-time.After(100 * time.Millisecond):
	}
}
