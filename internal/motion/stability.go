// internal/motion/stability.go
package motion

import "context"

// Stability is a single-shot "head is settled" signal.
// Signals raised while nobody is waiting coalesce into one.
type Stability struct {
	ch chan struct{}
}

func NewStability() *Stability {
	return &Stability{ch: make(chan struct{}, 1)}
}

// Signal raises the signal. It never blocks.
func (s *Stability) Signal() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait consumes the signal. It returns false if ctx ends first.
func (s *Stability) Wait(ctx context.Context) bool {
	select {
	case <-s.ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Reset drops a pending signal.
func (s *Stability) Reset() {
	select {
	case <-s.ch:
	default:
	}
}
