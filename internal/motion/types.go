// internal/motion/types.go
package motion

import (
	"errors"
	"fmt"
	"time"
)

// Axis identifies one of the three scanner axes.
type Axis int

const (
	AxisTheta Axis = iota
	AxisR
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisTheta:
		return "theta"
	case AxisR:
		return "r"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Axes lists all axes in homing/seek order.
var Axes = [...]Axis{AxisTheta, AxisR, AxisZ}

// Position is the sweep position in controller-native step counts.
type Position struct {
	Theta int
	R     int
	Z     int
}

func (p Position) Add(d Position) Position {
	return Position{Theta: p.Theta + d.Theta, R: p.R + d.R, Z: p.Z + d.Z}
}

func (p Position) get(a Axis) int {
	switch a {
	case AxisTheta:
		return p.Theta
	case AxisR:
		return p.R
	default:
		return p.Z
	}
}

func (p *Position) set(a Axis, v int) {
	switch a {
	case AxisTheta:
		p.Theta = v
	case AxisR:
		p.R = v
	default:
		p.Z = v
	}
}

// State is the sweep state machine state.
type State int

const (
	Idle State = iota
	Sweeping
	Homing
	SeekingTarget
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sweeping:
		return "sweeping"
	case Homing:
		return "homing"
	case SeekingTarget:
		return "seeking"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is a consistent copy of the controller state, safe to hand to other goroutines.
type Snapshot struct {
	Position  Position
	Counter   uint64 // completed sweep steps since start
	State     State
	AxisJumps int       // completed r reversals (z advances)
	At        time.Time // when this state was published
}

// SweepParams describes the raster geometry in step units.
type SweepParams struct {
	ThetaJump           int
	FullRevolutionTheta int
	RJump               int
	RJumpHalf           int
	FullRevolutionR     int
	ZJump               int
	ZJumpHalf           int
	FullRevolutionZ     int
}

// DefaultSweepParams returns the raster used on the controller board.
func DefaultSweepParams() SweepParams {
	return SweepParams{
		ThetaJump:           1,
		FullRevolutionTheta: 200,
		RJump:               4480,
		RJumpHalf:           280,
		FullRevolutionR:     22400,
		ZJump:               4480,
		ZJumpHalf:           280,
		FullRevolutionZ:     22400,
	}
}

// Validate checks the raster parameters. It does not mutate.
func (p SweepParams) Validate() error {
	if p.ThetaJump <= 0 || p.FullRevolutionTheta <= 0 {
		return errors.New("sweep: theta jump and full revolution must be > 0")
	}
	if p.RJump <= 0 || p.RJumpHalf <= 0 || p.RJumpHalf >= p.RJump {
		return fmt.Errorf("sweep: r jumps must satisfy 0 < half(%d) < jump(%d)", p.RJumpHalf, p.RJump)
	}
	if p.ZJump <= 0 || p.ZJumpHalf <= 0 || p.ZJumpHalf >= p.ZJump {
		return fmt.Errorf("sweep: z jumps must satisfy 0 < half(%d) < jump(%d)", p.ZJumpHalf, p.ZJump)
	}
	if p.FullRevolutionR < p.RJump {
		return fmt.Errorf("sweep: full r travel %d shorter than r jump %d", p.FullRevolutionR, p.RJump)
	}
	if p.FullRevolutionZ <= 0 {
		return errors.New("sweep: full z travel must be > 0")
	}
	return nil
}

// InRange reports whether p lies inside the travel limits.
func (p SweepParams) InRange(pos Position) bool {
	return pos.Theta >= 0 && pos.Theta <= p.FullRevolutionTheta &&
		pos.R >= 0 && pos.R <= p.FullRevolutionR &&
		pos.Z >= 0 && pos.Z <= p.FullRevolutionZ
}
