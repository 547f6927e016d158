// internal/control/dispatcher_test.go
package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/magscan/internal/acquire"
	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/motion"
	"github.com/tamzrod/magscan/internal/queue"
)

type rig struct {
	gate    *acquire.Gate
	ctrl    *motion.Controller
	act     *motion.SimActuator
	capture *queue.FIFO[acquire.Capture]
	send    *queue.FIFO[acquire.Record]
	live    *queue.Latest[[]frame.Word]
	d       *Dispatcher
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		gate:    acquire.NewGate(),
		act:     motion.NewSimActuator(0),
		capture: queue.NewFIFO[acquire.Capture](),
		send:    queue.NewFIFO[acquire.Record](),
		live:    queue.NewLatest[[]frame.Word](queue.DefaultDepth),
	}
	sw, err := motion.NewSweeper(motion.DefaultSweepParams(), r.act)
	require.NoError(t, err)
	r.ctrl, err = motion.NewController(motion.ControllerConfig{StepInterval: time.Millisecond, IdleInterval: 5 * time.Millisecond}, sw, r.gate, motion.NewStability())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.ctrl.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	r.d, err = NewDispatcher(r.gate, r.ctrl, 5*time.Second, r.capture, r.send, r.live)
	require.NoError(t, err)
	return r
}

func TestDispatcher_AbsoluteThenRelativeMove(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	resp := r.d.Handle(ctx, Parse("update coordinates,100,45,200"))
	assert.Equal(t, "[GO TO] Reached r=100, θ=45, z=200", resp)
	assert.Equal(t, motion.Position{R: 100, Theta: 45, Z: 200}, r.ctrl.Snapshot().Position)

	resp = r.d.Handle(ctx, Parse("update acoordinates,10,0,0"))
	assert.Equal(t, "[GO TO] Reached r=110, θ=45, z=200", resp)
	assert.Equal(t, 110, r.act.Net(motion.AxisR))
}

func TestDispatcher_StopClearsQueuesAndDisables(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	// pending items in every queue
	r.capture.Push(acquire.Capture{At: time.Now(), Words: []frame.Word{1}})
	r.send.Push(acquire.Record{})
	r.send.Push(acquire.Record{})
	r.live.Push([]frame.Word{2})

	assert.Equal(t, RespStarted, r.d.Handle(ctx, Parse("start")))
	assert.True(t, r.gate.Enabled())

	assert.Equal(t, RespStopped, r.d.Handle(ctx, Parse("stop")))
	assert.False(t, r.gate.Enabled())
	assert.Zero(t, r.capture.Len())
	assert.Zero(t, r.send.Len())
	assert.Zero(t, r.live.Len())

	// start resumes without replaying the dropped items
	assert.Equal(t, RespStarted, r.d.Handle(ctx, Parse("start")))
	_, ok := r.send.Pop(ctx, 20*time.Millisecond)
	assert.False(t, ok)
	r.d.Handle(ctx, Parse("pause"))
}

func TestDispatcher_PauseResetUnknown(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	r.d.Handle(ctx, Parse("update coordinates,500,7,900"))

	r.gate.Enable()
	assert.Equal(t, RespPaused, r.d.Handle(ctx, Parse("pause")))
	assert.False(t, r.gate.Enabled())

	r.gate.Enable()
	assert.Equal(t, RespReset, r.d.Handle(ctx, Parse("reset")))
	assert.False(t, r.gate.Enabled())
	pos := r.ctrl.Snapshot().Position
	assert.Equal(t, 0, pos.R)
	assert.Equal(t, 0, pos.Z)

	assert.Equal(t, RespUnknown, r.d.Handle(ctx, Parse("update coordinates,1,two,3")))
	assert.Equal(t, RespUnknown, r.d.Handle(ctx, Parse("dance")))
}

type failingMover struct{}

func (failingMover) MoveTo(context.Context, motion.Position) (motion.Position, error) {
	return motion.Position{}, errors.New("jammed")
}
func (failingMover) MoveBy(context.Context, motion.Position) (motion.Position, error) {
	return motion.Position{}, errors.New("jammed")
}
func (failingMover) Home(context.Context) (motion.Position, error) {
	return motion.Position{}, errors.New("jammed")
}

func TestDispatcher_MoveFailureIsReported(t *testing.T) {
	d, err := NewDispatcher(acquire.NewGate(), failingMover{}, time.Second)
	require.NoError(t, err)

	assert.Equal(t, "[GO TO] failed: jammed", d.Handle(context.Background(), Parse("update coordinates,1,2,3")))
	assert.Equal(t, "Motors reset failed: jammed", d.Handle(context.Background(), Parse("reset")))
}
