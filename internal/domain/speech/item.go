// Package speech provides the speech queue domain entities.
package speech

import "time"

// Status represents the lifecycle state of a queue item.
type Status int

const (
	StatusPending    Status = iota // Accepted, synthesis not yet scheduled
	StatusGenerating               // Synthesis request in flight
	StatusReady                    // Audio synthesized, waiting for its turn
	StatusPlaying                  // Audio being played back
	StatusCompleted                // Playback finished normally
	StatusError                    // Synthesis or playback failed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusGenerating:
		return "generating"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Options carries caller intent for an enqueue request. Nil fields mean
// the caller did not specify a value and the queue default applies.
type Options struct {
	Immediate    *bool // Interrupt current playback and jump the queue
	WaitForStart *bool // Caller wants a handle resolved when playback starts
	WaitForEnd   *bool // Caller wants a handle resolved when playback ends
}

// ItemOptions holds the resolved per-item options. Every field has a
// concrete value once the item is accepted into the queue.
type ItemOptions struct {
	Immediate    bool
	WaitForStart bool
	WaitForEnd   bool
}

// Item represents a unit of speech in the playback queue.
type Item struct {
	ID         string      // Queue-assigned UUID
	Text       string      // Source text (empty when enqueued from a query)
	Query      *AudioQuery // Pre-built synthesis query (nil when enqueued from text)
	Speaker    int         // VOICEVOX speaker style ID
	SpeedScale float64     // Speed override applied to the query (0 = engine default)
	Status     Status      // Current lifecycle state
	Options    ItemOptions // Resolved enqueue options
	AudioData  []byte      // Synthesized WAV, set while READY/PLAYING/COMPLETED
	Start      *Signal     // Playback-start handle (nil unless WaitForStart)
	End        *Signal     // Playback-end handle (nil unless WaitForEnd)
	CreatedAt  time.Time   // Time when accepted into the queue
}

// Input returns a short description of the item source for logging.
func (i *Item) Input() string {
	if i.Text != "" {
		return i.Text
	}
	return "(audio query)"
}
