// internal/motion/controller_test.go
package motion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGate struct {
	mu      sync.Mutex
	enabled bool
	wake    chan struct{}
}

func newFakeGate(enabled bool) *fakeGate {
	return &fakeGate{enabled: enabled, wake: make(chan struct{})}
}

func (g *fakeGate) set(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.enabled == v {
		return
	}
	g.enabled = v
	close(g.wake)
	g.wake = make(chan struct{})
}

func (g *fakeGate) Enable()  { g.set(true) }
func (g *fakeGate) Disable() { g.set(false) }

func (g *fakeGate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *fakeGate) Changed() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wake
}

func startController(t *testing.T, p SweepParams, gate Gate) (*Controller, *SimActuator) {
	t.Helper()
	act := NewSimActuator(0)
	sw, err := NewSweeper(p, act)
	require.NoError(t, err)
	c, err := NewController(ControllerConfig{StepInterval: 0, IdleInterval: 5 * time.Millisecond}, sw, gate, NewStability())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("controller did not stop")
		}
	})
	return c, act
}

func TestController_SweepCompletesDisablesGateAndHomes(t *testing.T) {
	gate := newFakeGate(true)
	c, act := startController(t, tinyParams(), gate)

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return !gate.Enabled() && snap.State == Idle && snap.Position.R == 0 && snap.Position.Z == 0
	}, 2*time.Second, time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, 0, snap.Position.R)
	assert.Equal(t, 0, snap.Position.Z)
	assert.EqualValues(t, 19, snap.Counter, "completing step is not counted")
	assert.Equal(t, 0, act.Net(AxisR))
}

// gateWatch records whether acquisition was enabled on every backward
// z pulse. The raster only moves z forward, so those pulses are homing.
type gateWatch struct {
	*SimActuator
	gate Gate

	mu      sync.Mutex
	zBack   bool
	samples []bool
}

func (w *gateWatch) SetDirection(a Axis, forward bool) error {
	if a == AxisZ {
		w.mu.Lock()
		w.zBack = !forward
		w.mu.Unlock()
	}
	return w.SimActuator.SetDirection(a, forward)
}

func (w *gateWatch) Pulse(a Axis) error {
	w.mu.Lock()
	if a == AxisZ && w.zBack {
		w.samples = append(w.samples, w.gate.Enabled())
	}
	w.mu.Unlock()
	return w.SimActuator.Pulse(a)
}

func (w *gateWatch) enabledDuringHoming() (pulses int, enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.samples {
		enabled = enabled || e
	}
	return len(w.samples), enabled
}

func TestController_CompletionDisablesGateBeforeHoming(t *testing.T) {
	gate := newFakeGate(true)
	watch := &gateWatch{SimActuator: NewSimActuator(0), gate: gate}
	sw, err := NewSweeper(tinyParams(), watch)
	require.NoError(t, err)
	c, err := NewController(ControllerConfig{IdleInterval: 5 * time.Millisecond}, sw, gate, NewStability())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.State == Idle && snap.Position.Z == 0 && !gate.Enabled()
	}, 2*time.Second, time.Millisecond)

	pulses, enabled := watch.enabledDuringHoming()
	assert.Equal(t, 4, pulses, "homing drives z back from 4")
	assert.False(t, enabled, "acquisition must be off while homing")
}

func TestController_StabilitySignalledPerStep(t *testing.T) {
	gate := newFakeGate(false)
	c, _ := startController(t, DefaultSweepParams(), gate)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.False(t, c.Stability().Wait(ctx), "no signal while disabled")

	enabledAt := time.Now()
	gate.Enable()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	require.True(t, c.Stability().Wait(ctx2))
	snap := c.Snapshot()
	gate.Disable()

	assert.GreaterOrEqual(t, snap.Counter, uint64(1))
	// settle instant of a step taken after the enable
	assert.False(t, snap.At.Before(enabledAt))
}

func TestController_MoveRequests(t *testing.T) {
	gate := newFakeGate(false)
	c, act := startController(t, DefaultSweepParams(), gate)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pos, err := c.MoveTo(ctx, Position{R: 100, Theta: 45, Z: 200})
	require.NoError(t, err)
	assert.Equal(t, Position{R: 100, Theta: 45, Z: 200}, pos)
	assert.Equal(t, pos, c.Snapshot().Position)

	pos, err = c.MoveBy(ctx, Position{R: 10})
	require.NoError(t, err)
	assert.Equal(t, Position{R: 110, Theta: 45, Z: 200}, pos)
	assert.Equal(t, 110, act.Net(AxisR))

	pos, err = c.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, Position{Theta: 45}, pos)

	_, err = c.MoveBy(ctx, Position{R: -5})
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, Position{Theta: 45}, c.Snapshot().Position)
}

func TestController_RequestAfterStop(t *testing.T) {
	act := NewSimActuator(0)
	sw, err := NewSweeper(tinyParams(), act)
	require.NoError(t, err)
	c, err := NewController(ControllerConfig{IdleInterval: time.Millisecond}, sw, newFakeGate(false), NewStability())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Run(ctx)

	_, err = c.Home(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestStability_Coalesces(t *testing.T) {
	s := NewStability()
	s.Signal()
	s.Signal()
	s.Signal()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, s.Wait(ctx))
	assert.False(t, s.Wait(ctx), "signals coalesce into one")

	s.Signal()
	s.Reset()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	assert.False(t, s.Wait(ctx2))
}
