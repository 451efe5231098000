// ABOUTME: In-memory fan-out broadcaster for reminder state-change events
// ABOUTME: Publishes events to all live subscribers with per-subscriber FIFO order

package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event names published over the stream.
const (
	EventReminderCreated = "reminder_created"
	EventReminderUpdated = "reminder_updated"
	EventReminderDeleted = "reminder_deleted"
	EventReminderDue     = "reminder_due"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Event is a named state-change notification. Payload is the full entity as
// of the change (for deletions, as it existed immediately before removal).
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Broadcaster provides in-memory pub/sub for state-change events. Delivery
// is best effort: each subscriber has its own buffered channel, so a slow
// subscriber can never block publishers or other subscribers. There is no
// history replay; subscribers that need full state fetch a store snapshot
// on (re)connect.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	logger      *slog.Logger
}

// New creates a broadcaster. Pass nil logger for default.
func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan Event),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber and returns its event channel plus a
// subscription ID for later unsubscription. The subscription is cleaned up
// automatically when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish fans an event out to every current subscriber. Non-blocking:
// events are dropped for subscribers whose channels are full.
//
// Sends happen under the read lock. Channels are only closed under the
// write lock (Unsubscribe/Close), so a send can never race a close; the
// default case keeps the lock from ever being held across a blocking send.
func (b *Broadcaster) Publish(name string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{Name: name, Payload: payload}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber", "event", name)
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// for an already-removed subscription.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}

	b.logger.Debug("broadcaster closed")
}
