// internal/control/dispatcher.go
package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/magscan/internal/monitoring"
	"github.com/tamzrod/magscan/internal/motion"
)

// Responses sent back to the client.
const (
	RespStarted = "started"
	RespStopped = "stopped"
	RespPaused  = "Acquisition paused"
	RespReset   = "Motors reset"
	RespUnknown = "unknown"
)

// Gate switches acquisition on and off.
type Gate interface {
	Enable()
	Disable()
}

// Mover executes head moves on the motion controller.
type Mover interface {
	MoveTo(ctx context.Context, target motion.Position) (motion.Position, error)
	MoveBy(ctx context.Context, delta motion.Position) (motion.Position, error)
	Home(ctx context.Context) (motion.Position, error)
}

// Clearer is a queue emptied on stop.
type Clearer interface {
	Clear() int
}

// Dispatcher applies commands and produces the textual reply.
type Dispatcher struct {
	gate        Gate
	mover       Mover
	queues      []Clearer
	moveTimeout time.Duration
}

func NewDispatcher(gate Gate, mover Mover, moveTimeout time.Duration, queues ...Clearer) (*Dispatcher, error) {
	if gate == nil || mover == nil {
		return nil, errors.New("control: gate and mover required")
	}
	if moveTimeout <= 0 {
		moveTimeout = 2 * time.Minute
	}
	return &Dispatcher{gate: gate, mover: mover, queues: queues, moveTimeout: moveTimeout}, nil
}

// Handle applies cmd synchronously.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command) string {
	switch cmd.Kind {
	case Start:
		d.gate.Enable()
		return RespStarted

	case Pause:
		d.gate.Disable()
		return RespPaused

	case Stop:
		d.gate.Disable()
		dropped := 0
		for _, q := range d.queues {
			dropped += q.Clear()
		}
		if dropped > 0 {
			monitoring.Logf("[control] stop dropped %d queued items", dropped)
		}
		return RespStopped

	case Reset:
		d.gate.Disable()
		mctx, cancel := context.WithTimeout(ctx, d.moveTimeout)
		defer cancel()
		if _, err := d.mover.Home(mctx); err != nil {
			monitoring.Logf("[control] reset failed: %v", err)
			return fmt.Sprintf("%s failed: %v", RespReset, err)
		}
		return RespReset

	case MoveTo, MoveBy:
		mctx, cancel := context.WithTimeout(ctx, d.moveTimeout)
		defer cancel()

		p := motion.Position{Theta: cmd.Theta, R: cmd.R, Z: cmd.Z}
		var (
			pos motion.Position
			err error
		)
		if cmd.Kind == MoveTo {
			pos, err = d.mover.MoveTo(mctx, p)
		} else {
			pos, err = d.mover.MoveBy(mctx, p)
		}
		if err != nil {
			monitoring.Logf("[control] %s failed: %v", cmd, err)
			return fmt.Sprintf("[GO TO] failed: %v", err)
		}
		return fmt.Sprintf("[GO TO] Reached r=%d, θ=%d, z=%d", pos.R, pos.Theta, pos.Z)

	default:
		return RespUnknown
	}
}
