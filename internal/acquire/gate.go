// internal/acquire/gate.go
package acquire

import "sync"

// Gate is the acquisition enable flag. Waiters learn about changes
// through Changed, which is closed on every transition.
type Gate struct {
	mu      sync.Mutex
	enabled bool
	wake    chan struct{}
}

func NewGate() *Gate {
	return &Gate{wake: make(chan struct{})}
}

func (g *Gate) Enable()  { g.set(true) }
func (g *Gate) Disable() { g.set(false) }

func (g *Gate) set(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.enabled == v {
		return
	}
	g.enabled = v
	close(g.wake)
	g.wake = make(chan struct{})
}

func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

// Changed returns a channel closed on the next transition.
func (g *Gate) Changed() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wake
}
