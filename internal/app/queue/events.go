package queue

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// EventType represents a queue event type.
type EventType int

const (
	EventItemEnqueued      EventType = iota // Item accepted into the queue
	EventItemStatusChanged                  // Item moved through its lifecycle
	EventQueueStateChanged                  // Queue-level state changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventItemEnqueued:
		return "item_enqueued"
	case EventItemStatusChanged:
		return "item_status_changed"
	case EventQueueStateChanged:
		return "queue_state_changed"
	default:
		return "unknown"
	}
}

// Event describes an item or queue transition.
type Event struct {
	Type        EventType
	Item        *speech.Item  // Subject item (nil for queue-level events)
	ItemFrom    speech.Status // Previous item status (status changes only)
	ItemTo      speech.Status // New item status (status changes only)
	QueueFrom   State         // Previous queue state (queue changes only)
	QueueState  State         // Queue state at emission time
	QueueLength int           // Non-terminal item count at emission time
}

// Events fans queue events out to subscribers. Delivery is synchronous
// and follows subscription order, so handlers observe transitions in the
// exact order they happen. Handlers run on the queue's goroutines and
// must not call back into the manager; a panicking handler is logged and
// the remaining handlers still run.
type Events struct {
	mu   sync.RWMutex
	subs []subscriber
}

type subscriber struct {
	id string
	fn func(Event)
}

// NewEvents returns an empty subscriber registry.
func NewEvents() *Events {
	return &Events{}
}

// Subscribe registers a handler and returns its subscription id.
func (e *Events) Subscribe(fn func(Event)) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.New().String()
	e.subs = append(e.subs, subscriber{id: id, fn: fn})
	return id
}

// Unsubscribe removes a handler. Unknown ids are ignored.
func (e *Events) Unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to every subscriber in subscription order.
func (e *Events) Publish(ev Event) {
	e.mu.RLock()
	subs := make([]subscriber, len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, s := range subs {
		deliver(s, ev)
	}
}

func deliver(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("queue: event handler %s panicked: %v", s.id, r)
		}
	}()
	s.fn(ev)
}
