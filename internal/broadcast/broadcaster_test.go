// ABOUTME: Tests for the fan-out broadcaster
// ABOUTME: Covers FIFO delivery, slow-subscriber isolation, and cleanup

package broadcast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New(nil)
	defer b.Close()
	ctx := context.Background()

	ch1, _ := b.Subscribe(ctx)
	ch2, _ := b.Subscribe(ctx)

	b.Publish(EventReminderCreated, map[string]string{"id": "r1"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventReminderCreated, ev.Name)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestPerSubscriberFIFO(t *testing.T) {
	b := New(nil)
	defer b.Close()

	ch, _ := b.Subscribe(context.Background())

	for i := 0; i < 10; i++ {
		b.Publish(EventReminderUpdated, i)
	}

	for i := 0; i < 10; i++ {
		select {
		case ev := <-ch:
			assert.Equal(t, i, ev.Payload)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New(nil)
	defer b.Close()
	ctx := context.Background()

	// slow never reads; its buffer fills and further events are dropped.
	_, _ = b.Subscribe(ctx)
	fast, _ := b.Subscribe(ctx)

	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish(EventReminderDue, i)
		// Drain the fast subscriber as we go so its buffer never fills.
		select {
		case ev := <-fast:
			assert.Equal(t, i, ev.Payload)
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber starved at event %d", i)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(nil)
	defer b.Close()

	ch, subID := b.Subscribe(context.Background())
	b.Unsubscribe(subID)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.SubscriberCount())

	// Idempotent.
	b.Unsubscribe(subID)
}

func TestContextCancelCleansUp(t *testing.T) {
	b := New(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, _ = b.Subscribe(ctx)
	require.Equal(t, 1, b.SubscriberCount())

	cancel()

	require.Eventually(t, func() bool {
		return b.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestNoReplayForLateSubscriber(t *testing.T) {
	b := New(nil)
	defer b.Close()

	b.Publish(EventReminderCreated, "early")

	ch, _ := b.Subscribe(context.Background())
	select {
	case ev := <-ch:
		t.Fatalf("unexpected replayed event %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClose(t *testing.T) {
	b := New(nil)

	channels := make([]<-chan Event, 0, 5)
	for i := 0; i < 5; i++ {
		ch, _ := b.Subscribe(context.Background())
		channels = append(channels, ch)
	}

	b.Close()

	for i, ch := range channels {
		_, open := <-ch
		assert.False(t, open, fmt.Sprintf("channel %d still open", i))
	}
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	b := New(nil)
	defer b.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20000; i++ {
			b.Publish(EventReminderDue, map[string]string{"id": "r1"})
		}
	}()

	// Subscribers churning while the publisher runs must never see a send
	// on a closed channel.
	for i := 0; i < 20000; i++ {
		ch, subID := b.Subscribe(context.Background())
		b.Unsubscribe(subID)
		// Drain anything delivered before the unsubscribe.
		for range ch {
		}
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("publisher did not finish")
	}
}
