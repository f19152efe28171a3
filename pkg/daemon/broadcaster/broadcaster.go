// Package broadcaster manages subscribers and distributes catalog events.
package broadcaster

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of catalog event.
type EventType string

const (
	// EventRecordUpdated fires when a user edit lands on a record.
	EventRecordUpdated EventType = "record_updated"

	// EventCycleStarted fires when an update cycle begins.
	EventCycleStarted EventType = "cycle_started"

	// EventCycleCompleted fires when an update cycle reaches a terminal
	// outcome, successful or not.
	EventCycleCompleted EventType = "cycle_completed"
)

// Event is one catalog change notification.
type Event struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	Name   string    `json:"name,omitempty"`   // record name for record_updated
	Status string    `json:"status,omitempty"` // cycle outcome for cycle_completed
	Time   time.Time `json:"time"`
}

// subscriberBuffer is the per-subscriber event channel capacity. A
// subscriber that falls this far behind starts losing events.
const subscriberBuffer = 16

// Subscriber represents a client subscribed to catalog events.
type Subscriber struct {
	ID     string
	Events chan Event
}

// Broadcaster manages subscribers and distributes catalog events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates a new Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe creates a new subscription for catalog events.
// Returns nil after the broadcaster has been closed.
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan Event, subscriberBuffer),
	}

	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Notify fans an event out to every subscriber. The event's ID and Time
// are filled in when unset. Slow subscribers lose events rather than
// blocking the sender.
func (b *Broadcaster) Notify(event Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
			// Channel full, event dropped
		}
	}
}

// Close closes the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
