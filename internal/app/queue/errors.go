// Package queue provides the speech playback queue with prefetch-bounded
// synthesis and ordered playback.
package queue

import "github.com/cockroachdb/errors"

var (
	// ErrEmptyInput is returned when an enqueue request carries neither
	// text nor a pre-built audio query.
	ErrEmptyInput = errors.New("empty input")

	// ErrSynthesis marks failures while building or synthesizing audio.
	ErrSynthesis = errors.New("synthesis failed")

	// ErrPlayback marks failures while playing synthesized audio.
	ErrPlayback = errors.New("playback failed")

	// ErrSuperseded rejects handles of items displaced by an immediate
	// enqueue. It is not a failure of the item itself.
	ErrSuperseded = errors.New("superseded by immediate speech")

	// ErrCleared rejects handles of items dropped by an explicit clear.
	ErrCleared = errors.New("queue cleared")

	// ErrInvalidTransition is returned for illegal lifecycle transitions.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrClosed is returned when enqueueing after the manager shut down.
	ErrClosed = errors.New("queue closed")
)
