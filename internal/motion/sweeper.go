// internal/motion/sweeper.go
package motion

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("sweep: target outside travel limits")

// Sweeper owns the raster state. It is not safe for concurrent use;
// the Controller is its only caller.
type Sweeper struct {
	params SweepParams
	act    Actuator

	pos       Position
	rCount    int
	jumpCount int
	state     State
}

// NewSweeper validates params and starts at the origin.
func NewSweeper(params SweepParams, act Actuator) (*Sweeper, error) {
	if act == nil {
		return nil, errors.New("sweep: actuator is nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Sweeper{params: params, act: act, state: Idle}, nil
}

func (s *Sweeper) Position() Position  { return s.pos }
func (s *Sweeper) State() State        { return s.state }
func (s *Sweeper) AxisJumps() int      { return s.jumpCount }
func (s *Sweeper) Params() SweepParams { return s.params }

// Step advances the raster by one theta increment, handling r reversals
// and z advances at the ends of each r run. It returns completed=true
// without moving when the next z advance would leave the travel; the
// caller stops acquisition and then calls Home.
func (s *Sweeper) Step() (completed bool, err error) {
	p := s.params
	s.state = Sweeping

	if err := s.move(AxisTheta, p.ThetaJump, true); err != nil {
		return false, err
	}
	s.pos.Theta += p.ThetaJump
	if s.pos.Theta < p.FullRevolutionTheta {
		return false, nil
	}
	s.pos.Theta = 0

	if s.jumpCount%2 == 1 {
		// moving in
		if s.pos.R-p.RJump < 0 {
			dz := p.ZJump - p.ZJumpHalf
			if s.pos.Z+dz > p.FullRevolutionZ {
				return true, nil
			}
			if err := s.advanceZ(dz); err != nil {
				return false, err
			}
			return false, nil
		}
		s.rCount++
		dr := p.RJumpHalf
		if s.rCount%2 == 0 {
			dr = p.RJump - p.RJumpHalf
		}
		if err := s.move(AxisR, dr, false); err != nil {
			return false, err
		}
		s.pos.R -= dr
		return false, nil
	}

	// moving out
	if s.pos.R+p.RJump > p.FullRevolutionR {
		dz := p.ZJumpHalf
		if s.pos.Z+dz > p.FullRevolutionZ {
			return true, nil
		}
		if err := s.advanceZ(dz); err != nil {
			return false, err
		}
		return false, nil
	}
	s.rCount++
	dr := p.RJumpHalf
	if s.rCount%2 == 0 {
		dr = p.RJump - p.RJumpHalf
	}
	if err := s.move(AxisR, dr, true); err != nil {
		return false, err
	}
	s.pos.R += dr
	return false, nil
}

func (s *Sweeper) advanceZ(dz int) error {
	if err := s.move(AxisZ, dz, true); err != nil {
		return err
	}
	s.pos.Z += dz
	s.rCount = 0
	s.jumpCount++
	return nil
}

// Home drives r then z back to 0. Theta is left where it is.
// The raster counters restart so the next sweep begins fresh.
func (s *Sweeper) Home() error {
	s.state = Homing
	for _, a := range [...]Axis{AxisR, AxisZ} {
		if err := s.seek(a, 0); err != nil {
			return fmt.Errorf("sweep: home %s: %w", a, err)
		}
	}
	s.rCount = 0
	s.jumpCount = 0
	s.state = Idle
	return nil
}

// MoveTo drives each axis straight to target. On success the stored
// position equals target exactly.
func (s *Sweeper) MoveTo(target Position) error {
	if !s.params.InRange(target) {
		return fmt.Errorf("%w: r=%d theta=%d z=%d", ErrOutOfRange, target.R, target.Theta, target.Z)
	}
	s.state = SeekingTarget
	for _, a := range [...]Axis{AxisR, AxisTheta, AxisZ} {
		if err := s.seek(a, target.get(a)); err != nil {
			s.state = Idle
			return fmt.Errorf("sweep: move %s: %w", a, err)
		}
	}
	s.state = Idle
	return nil
}

func (s *Sweeper) seek(a Axis, target int) error {
	cur := s.pos.get(a)
	switch {
	case target > cur:
		if err := s.move(a, target-cur, true); err != nil {
			return err
		}
	case target < cur:
		if err := s.move(a, cur-target, false); err != nil {
			return err
		}
	}
	s.pos.set(a, target)
	return nil
}

func (s *Sweeper) move(a Axis, steps int, forward bool) error {
	if steps <= 0 {
		return nil
	}
	if err := s.act.SetDirection(a, forward); err != nil {
		return err
	}
	for i := 0; i < steps; i++ {
		if err := s.act.Pulse(a); err != nil {
			return err
		}
	}
	return nil
}
