package queue

import (
	"github.com/cockroachdb/errors"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/domain/speech"
)

// State represents the queue-level mode.
type State int

const (
	StateIdle     State = iota // No items queued or playing
	StateActive                // Items queued or playing normally
	StateDraining              // Playback teardown in progress after a clear
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// itemEdges lists the legal item lifecycle transitions.
var itemEdges = map[speech.Status][]speech.Status{
	speech.StatusPending:    {speech.StatusGenerating},
	speech.StatusGenerating: {speech.StatusReady, speech.StatusError},
	speech.StatusReady:      {speech.StatusPlaying, speech.StatusError},
	speech.StatusPlaying:    {speech.StatusCompleted, speech.StatusError},
}

// ItemLifecycle guards item status transitions and notifies registered
// callbacks after each one. Callbacks run synchronously, in registration
// order, before Transition returns. It holds no lock of its own; the
// manager serializes access.
type ItemLifecycle struct {
	callbacks []func(item *speech.Item, from, to speech.Status)
}

// NewItemLifecycle returns an item transition guard.
func NewItemLifecycle() *ItemLifecycle {
	return &ItemLifecycle{}
}

// OnTransition registers a callback invoked after every legal transition.
func (l *ItemLifecycle) OnTransition(fn func(item *speech.Item, from, to speech.Status)) {
	l.callbacks = append(l.callbacks, fn)
}

// Transition moves an item to the given status. Illegal moves leave the
// item untouched and return ErrInvalidTransition.
func (l *ItemLifecycle) Transition(item *speech.Item, to speech.Status) error {
	from := item.Status
	if !legalEdge(itemEdges[from], to) {
		return errors.Wrapf(ErrInvalidTransition, "item %s: %s -> %s", item.ID, from, to)
	}
	item.Status = to
	for _, fn := range l.callbacks {
		fn(item, from, to)
	}
	return nil
}

// queueEdges lists the legal queue-level transitions.
var queueEdges = map[State][]State{
	StateIdle:     {StateActive},
	StateActive:   {StateIdle, StateDraining},
	StateDraining: {StateIdle, StateActive},
}

// Lifecycle guards queue-level state transitions and notifies registered
// callbacks after each one. Same-state transitions are no-ops.
type Lifecycle struct {
	state     State
	callbacks []func(from, to State)
}

// NewLifecycle returns a queue state guard starting at StateIdle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// Current returns the present queue state.
func (l *Lifecycle) Current() State {
	return l.state
}

// OnTransition registers a callback invoked after every state change.
func (l *Lifecycle) OnTransition(fn func(from, to State)) {
	l.callbacks = append(l.callbacks, fn)
}

// Transition moves the queue to the given state. Moving to the current
// state is a no-op; illegal moves return ErrInvalidTransition.
func (l *Lifecycle) Transition(to State) error {
	from := l.state
	if from == to {
		return nil
	}
	if !legalEdge(queueEdges[from], to) {
		return errors.Wrapf(ErrInvalidTransition, "queue: %s -> %s", from, to)
	}
	l.state = to
	for _, fn := range l.callbacks {
		fn(from, to)
	}
	return nil
}

func legalEdge[T comparable](edges []T, to T) bool {
	for _, e := range edges {
		if e == to {
			return true
		}
	}
	return false
}
