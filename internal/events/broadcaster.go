package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// defaultBufferSize is the per-subscription event buffer. Publishing never
// blocks; a subscriber that falls this far behind misses events and should
// re-sync by polling the task store.
const defaultBufferSize = 16

// Subscription is one observer's handle on a task's event stream. Its
// channel ends when the task reaches a terminal state or the subscriber
// cancels.
type Subscription struct {
	id     int
	taskID uuid.UUID
	ch     chan TaskEvent
}

// Ch returns the channel to receive events on.
func (s *Subscription) Ch() <-chan TaskEvent {
	return s.ch
}

// TaskID returns the task this subscription observes.
func (s *Subscription) TaskID() uuid.UUID {
	return s.taskID
}

// Broadcaster is an in-process pub/sub fan-out of task-state transitions,
// keyed by task id. Delivery is best-effort and at-most-once per
// subscriber per event; an observer not subscribed at publish time never
// receives that event retroactively.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[int]*Subscription
	nextID int
	logger *slog.Logger
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[uuid.UUID]map[int]*Subscription),
		logger: logger.With("component", "broadcaster"),
	}
}

// Subscribe registers interest in a task's state changes. The subscription
// receives every event published for taskID from this point on, buffered
// up to defaultBufferSize.
func (b *Broadcaster) Subscribe(taskID uuid.UUID) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		taskID: taskID,
		ch:     make(chan TaskEvent, defaultBufferSize),
	}

	if b.subs[taskID] == nil {
		b.subs[taskID] = make(map[int]*Subscription)
	}
	b.subs[taskID][sub.id] = sub

	b.logger.Debug("subscriber registered",
		"task_id", taskID,
		"subscriber_count", len(b.subs[taskID]))
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// after the broadcaster has already closed the subscription at a terminal
// event, and safe with a nil subscription.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	taskSubs, ok := b.subs[sub.taskID]
	if !ok {
		return
	}
	if _, ok := taskSubs[sub.id]; !ok {
		return
	}

	delete(taskSubs, sub.id)
	if len(taskSubs) == 0 {
		delete(b.subs, sub.taskID)
	}
	close(sub.ch)
}

// Publish delivers the event to all current subscribers for the task.
// Sends are non-blocking: a full subscriber buffer drops the event for
// that subscriber only. A terminal event closes and removes every
// subscription for the task after delivery.
func (b *Broadcaster) Publish(taskID uuid.UUID, event TaskEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	taskSubs := b.subs[taskID]
	for _, sub := range taskSubs {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("subscriber buffer full, dropping event",
				"task_id", taskID,
				"status", event.Status,
				"progress", event.Progress)
		}
	}

	if event.Terminal() && len(taskSubs) > 0 {
		for _, sub := range taskSubs {
			close(sub.ch)
		}
		delete(b.subs, taskID)
		b.logger.Debug("closed subscriptions after terminal event",
			"task_id", taskID,
			"status", event.Status)
	}
}

// SubscriberCount returns the number of live subscriptions for a task.
func (b *Broadcaster) SubscriberCount(taskID uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[taskID])
}
