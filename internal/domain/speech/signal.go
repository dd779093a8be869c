package speech

import (
	"context"
	"sync"
)

// Signal is a one-shot completion handle. It resolves or rejects exactly
// once; later calls are ignored. Waiters observe the first outcome.
type Signal struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewSignal returns an unresolved signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Resolve completes the signal successfully. No-op if already settled.
func (s *Signal) Resolve() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Reject completes the signal with a cause. No-op if already settled.
func (s *Signal) Reject(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Done returns a channel closed when the signal settles.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Err returns the rejection cause. Only valid after Done is closed;
// nil means the signal resolved.
func (s *Signal) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the signal settles or the context is cancelled.
// It returns the rejection cause, nil on resolution, or the context error.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return s.err
	}
}
