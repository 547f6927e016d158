// internal/motion/sweeper_test.go
package motion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyParams() SweepParams {
	return SweepParams{
		ThetaJump:           1,
		FullRevolutionTheta: 2,
		RJump:               4,
		RJumpHalf:           1,
		FullRevolutionR:     8,
		ZJump:               4,
		ZJumpHalf:           1,
		FullRevolutionZ:     4,
	}
}

func newTestSweeper(t *testing.T, p SweepParams) (*Sweeper, *SimActuator) {
	t.Helper()
	act := NewSimActuator(0)
	sw, err := NewSweeper(p, act)
	require.NoError(t, err)
	return sw, act
}

func TestSweeper_TinyRasterTrace(t *testing.T) {
	sw, act := newTestSweeper(t, tinyParams())

	// position after every theta wrap (every second step)
	want := []Position{
		{R: 1, Z: 0},
		{R: 4, Z: 0},
		{R: 5, Z: 0},
		{R: 5, Z: 1},
		{R: 4, Z: 1},
		{R: 1, Z: 1},
		{R: 1, Z: 4},
		{R: 2, Z: 4},
		{R: 5, Z: 4},
	}

	for i, w := range want {
		done, err := sw.Step()
		require.NoError(t, err)
		require.False(t, done)
		assert.Equal(t, 1, sw.Position().Theta, "half step %d", i)

		done, err = sw.Step()
		require.NoError(t, err)
		require.False(t, done, "wrap %d", i)
		assert.Equal(t, w, sw.Position(), "wrap %d", i)
		assert.Equal(t, Sweeping, sw.State())
	}

	// 19th step: theta only
	done, err := sw.Step()
	require.NoError(t, err)
	require.False(t, done)

	// 20th step: pending z advance would exceed travel
	done, err = sw.Step()
	require.NoError(t, err)
	require.True(t, done)

	// completion reports the boundary without moving
	assert.Equal(t, Position{Theta: 0, R: 5, Z: 4}, sw.Position())
	assert.Equal(t, 5, act.Net(AxisR))
	assert.Equal(t, 4, act.Net(AxisZ))

	require.NoError(t, sw.Home())
	assert.Equal(t, Position{Theta: 0, R: 0, Z: 0}, sw.Position())
	assert.Equal(t, Idle, sw.State())
	assert.Equal(t, 0, act.Net(AxisR))
	assert.Equal(t, 0, act.Net(AxisZ))
	assert.Equal(t, 20, act.Net(AxisTheta))
}

func TestSweeper_StaysInBoundsAndTerminates(t *testing.T) {
	p := SweepParams{
		ThetaJump:           3,
		FullRevolutionTheta: 20,
		RJump:               50,
		RJumpHalf:           7,
		FullRevolutionR:     400,
		ZJump:               60,
		ZJumpHalf:           15,
		FullRevolutionZ:     300,
	}
	sw, act := newTestSweeper(t, p)

	const limit = 1_000_000
	steps := 0
	for ; steps < limit; steps++ {
		done, err := sw.Step()
		require.NoError(t, err)
		if done {
			break
		}
		pos := sw.Position()
		require.True(t, p.InRange(pos), "out of range at step %d: %+v", steps, pos)
		require.Less(t, pos.Theta, p.FullRevolutionTheta)

		// motor counters always match the stored position
		require.Equal(t, pos.R, act.Net(AxisR))
		require.Equal(t, pos.Z, act.Net(AxisZ))
	}
	require.Less(t, steps, limit, "sweep never completed")
}

func TestSweeper_Deterministic(t *testing.T) {
	run := func() []Position {
		sw, _ := newTestSweeper(t, tinyParams())
		var trace []Position
		for {
			done, err := sw.Step()
			require.NoError(t, err)
			trace = append(trace, sw.Position())
			if done {
				return trace
			}
		}
	}
	assert.Equal(t, run(), run())
}

func TestSweeper_HomeIsIdempotent(t *testing.T) {
	sw, act := newTestSweeper(t, DefaultSweepParams())

	require.NoError(t, sw.MoveTo(Position{Theta: 37, R: 9000, Z: 1200}))
	require.NoError(t, sw.Home())
	assert.Equal(t, Position{Theta: 37}, sw.Position())

	pulses := act.Pulses(AxisR) + act.Pulses(AxisZ)
	require.NoError(t, sw.Home())
	assert.Equal(t, Position{Theta: 37}, sw.Position())
	assert.Equal(t, pulses, act.Pulses(AxisR)+act.Pulses(AxisZ), "second home must not move")
	assert.Equal(t, Idle, sw.State())
}

func TestSweeper_MoveToExact(t *testing.T) {
	sw, act := newTestSweeper(t, DefaultSweepParams())

	targets := []Position{
		{Theta: 45, R: 100, Z: 200},
		{Theta: 10, R: 50, Z: 0},
		{Theta: 10, R: 50, Z: 0},
		{Theta: 200, R: 22400, Z: 22400},
		{},
	}
	for _, tgt := range targets {
		require.NoError(t, sw.MoveTo(tgt))
		assert.Equal(t, tgt, sw.Position())
		assert.Equal(t, tgt.Theta, act.Net(AxisTheta))
		assert.Equal(t, tgt.R, act.Net(AxisR))
		assert.Equal(t, tgt.Z, act.Net(AxisZ))
	}
}

func TestSweeper_MoveToRejectsOutOfRange(t *testing.T) {
	sw, act := newTestSweeper(t, DefaultSweepParams())

	err := sw.MoveTo(Position{R: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, 0, act.Pulses(AxisR))

	err = sw.MoveTo(Position{Z: 22401})
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestSweeper_ActuatorFailure(t *testing.T) {
	act := NewSimActuator(0)
	sw, err := NewSweeper(tinyParams(), act)
	require.NoError(t, err)
	require.NoError(t, act.Close())

	_, err = sw.Step()
	assert.ErrorIs(t, err, ErrActuatorClosed)
	assert.Equal(t, Position{}, sw.Position())
}

func TestNewSweeper_Validation(t *testing.T) {
	bad := tinyParams()
	bad.RJumpHalf = bad.RJump
	_, err := NewSweeper(bad, NewSimActuator(0))
	assert.Error(t, err)

	_, err = NewSweeper(tinyParams(), nil)
	assert.Error(t, err)

	assert.NoError(t, DefaultSweepParams().Validate())
}
