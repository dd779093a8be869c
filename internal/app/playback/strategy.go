// Package playback provides audio playback strategies for synthesized speech.
package playback

import "context"

// Strategy plays synthesized WAV audio. The queue drives one playback at
// a time, so Play calls never overlap, but Stop may arrive concurrently
// from another goroutine.
type Strategy interface {
	// SupportsStreaming reports whether PlayFromBuffer is usable. The
	// answer is decided when the strategy is built and never changes.
	SupportsStreaming() bool

	// PlayFromBuffer plays WAV bytes from memory, blocking until playback
	// finishes or ctx is cancelled. Cancellation is a clean stop and
	// returns nil; only real playback failures return an error.
	PlayFromBuffer(ctx context.Context, wav []byte) error

	// PlayFromFile plays a WAV file from disk with the same blocking and
	// cancellation contract as PlayFromBuffer.
	PlayFromFile(ctx context.Context, path string) error

	// Stop aborts the current playback, if any. Stop is idempotent and
	// releases the playback resources at most once.
	Stop()
}
