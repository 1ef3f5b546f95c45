// Package ready provides the synchronization primitives used to await
// asynchronous dependencies: a fixed-interval polling waiter and a
// memoized one-shot signal.
package ready

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotReady indicates a dependency did not become ready within the
// attempt budget. Callers must not invent defaults; the only recovery
// is their own retry.
var ErrNotReady = errors.New("ready: dependency not ready")

const (
	DefaultAttempts = 50
	DefaultInterval = 100 * time.Millisecond
)

// Wait evaluates pred on a fixed interval until it holds or the attempt
// budget is exhausted. No backoff. Returns nil as soon as pred is true,
// ErrNotReady once attempts run out, or the context error if cancelled.
func Wait(ctx context.Context, what string, attempts int, interval time.Duration, pred func() bool) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	for i := 0; i < attempts; i++ {
		if pred() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("%w: %s after %d attempts", ErrNotReady, what, attempts)
}

// Signal is a one-shot readiness future: resolved exactly once, awaited
// by any number of consumers. It replaces duplicated polling loops where
// the resolving side is under our control.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Resolve marks the signal ready. Subsequent calls are no-ops.
func (s *Signal) Resolve() {
	s.once.Do(func() { close(s.ch) })
}

// Ready reports whether the signal has been resolved.
func (s *Signal) Ready() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on resolution.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Await blocks until resolution or context cancellation.
func (s *Signal) Await(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
