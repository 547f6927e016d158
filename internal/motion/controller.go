// internal/motion/controller.go
package motion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tamzrod/magscan/internal/monitoring"
)

var ErrStopped = errors.New("motion: controller stopped")

// Gate is the acquisition enable flag as seen by the controller.
type Gate interface {
	Enabled() bool
	Disable()
	Changed() <-chan struct{}
}

// ControllerConfig holds the loop timing.
type ControllerConfig struct {
	StepInterval time.Duration // pause between sweep steps while enabled
	IdleInterval time.Duration // poll interval while disabled
}

type requestKind int

const (
	reqMoveTo requestKind = iota
	reqMoveBy
	reqHome
)

type request struct {
	kind  requestKind
	pos   Position
	reply chan result
}

type result struct {
	pos Position
	err error
}

// Controller is the single goroutine that moves the motors.
// Other goroutines observe it through Snapshot and drive it through
// MoveTo, MoveBy and Home.
type Controller struct {
	cfg    ControllerConfig
	sw     *Sweeper
	gate   Gate
	stable *Stability

	reqs chan request
	done chan struct{}

	mu      sync.RWMutex
	snap    Snapshot
	counter uint64
}

func NewController(cfg ControllerConfig, sw *Sweeper, gate Gate, stable *Stability) (*Controller, error) {
	if sw == nil {
		return nil, errors.New("motion: sweeper is nil")
	}
	if gate == nil {
		return nil, errors.New("motion: gate is nil")
	}
	if stable == nil {
		return nil, errors.New("motion: stability signal is nil")
	}
	if cfg.StepInterval < 0 || cfg.IdleInterval <= 0 {
		return nil, errors.New("motion: invalid loop intervals")
	}
	c := &Controller{
		cfg:    cfg,
		sw:     sw,
		gate:   gate,
		stable: stable,
		reqs:   make(chan request),
		done:   make(chan struct{}),
	}
	c.publish()
	return c, nil
}

// Snapshot returns the last published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Stability returns the signal raised after every sweep step.
func (c *Controller) Stability() *Stability { return c.stable }

// Run drives the sweep until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)

	for {
		if ctx.Err() != nil {
			return
		}

		if !c.gate.Enabled() {
			if c.sw.State() == Sweeping {
				c.sw.state = Idle
				c.publish()
			}
			c.pause(ctx, c.cfg.IdleInterval, c.gate.Changed())
			continue
		}

		completed, err := c.sw.Step()
		switch {
		case err != nil:
			c.publish()
			monitoring.Logf("[sweep] step failed at %+v: %v", c.sw.Position(), err)
		case completed:
			// acquisition stops before the head leaves the last position
			c.gate.Disable()
			c.sw.state = Homing
			c.publish()
			herr := c.sw.Home()
			c.publish()
			if herr != nil {
				monitoring.Logf("[sweep] complete after %d steps, home failed: %v", c.counterValue(), herr)
			} else {
				monitoring.Logf("[sweep] complete after %d steps, homed", c.counterValue())
			}
		default:
			c.mu.Lock()
			c.counter++
			c.mu.Unlock()
			c.publish()
			c.stable.Signal()
		}

		c.pause(ctx, c.cfg.StepInterval, nil)
	}
}

// pause waits for d while still serving requests and wake-ups.
func (c *Controller) pause(ctx context.Context, d time.Duration, wake <-chan struct{}) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	case <-wake:
	case req := <-c.reqs:
		c.handle(req)
	}
}

func (c *Controller) handle(req request) {
	var err error
	switch req.kind {
	case reqMoveTo:
		err = c.sw.MoveTo(req.pos)
	case reqMoveBy:
		err = c.sw.MoveTo(c.sw.Position().Add(req.pos))
	case reqHome:
		err = c.sw.Home()
	}
	c.publish()
	req.reply <- result{pos: c.sw.Position(), err: err}
}

// MoveTo drives the head to an absolute position and returns where it ended.
func (c *Controller) MoveTo(ctx context.Context, target Position) (Position, error) {
	return c.do(ctx, request{kind: reqMoveTo, pos: target})
}

// MoveBy drives the head by a relative offset from its current position.
func (c *Controller) MoveBy(ctx context.Context, delta Position) (Position, error) {
	return c.do(ctx, request{kind: reqMoveBy, pos: delta})
}

// Home drives r and z back to the origin.
func (c *Controller) Home(ctx context.Context) (Position, error) {
	return c.do(ctx, request{kind: reqHome})
}

func (c *Controller) do(ctx context.Context, req request) (Position, error) {
	req.reply = make(chan result, 1)

	select {
	case c.reqs <- req:
	case <-c.done:
		return Position{}, ErrStopped
	case <-ctx.Done():
		return Position{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.pos, res.err
	case <-ctx.Done():
		return Position{}, ctx.Err()
	}
}

func (c *Controller) counterValue() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counter
}

func (c *Controller) publish() {
	c.mu.Lock()
	c.snap = Snapshot{
		Position:  c.sw.Position(),
		Counter:   c.counter,
		State:     c.sw.State(),
		AxisJumps: c.sw.AxisJumps(),
		At:        time.Now(),
	}
	c.mu.Unlock()
}
