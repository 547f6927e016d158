// internal/acquire/stamper_test.go
package acquire

import (
	"context"
	"testing"
	"time"

	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/motion"
	"github.com/tamzrod/magscan/internal/queue"
)

type fixedPosition struct{ snap motion.Snapshot }

func (f fixedPosition) Snapshot() motion.Snapshot { return f.snap }

func TestStampOnce_PairsPositionWithBatch(t *testing.T) {
	capture := queue.NewFIFO[Capture]()
	send := queue.NewFIFO[Record]()
	stats := &Stats{}

	pos := fixedPosition{motion.Snapshot{Position: motion.Position{Theta: 3, R: 280, Z: 4480}, Counter: 17}}
	s, err := NewStamper(motion.NewStability(), pos, capture, 50*time.Millisecond, stats, send)
	if err != nil {
		t.Fatalf("NewStamper err=%v", err)
	}

	words := []frame.Word{frame.Encode(5, 1, 2, 3, 0)}
	capture.Push(Capture{At: time.Now(), Words: words})

	rec, ok := s.StampOnce(context.Background())
	if !ok {
		t.Fatalf("expected a record")
	}
	want := Stamp{Theta: 3, R: 280, Z: 4480, Counter: 17}
	if rec.Stamp != want {
		t.Fatalf("stamp=%+v want %+v", rec.Stamp, want)
	}
	if send.Len() != 1 {
		t.Fatalf("record not forwarded")
	}
	if stats.Stamped.Load() != 1 {
		t.Fatalf("stamped counter not updated")
	}
}

func TestStampOnce_MissIsCounted(t *testing.T) {
	capture := queue.NewFIFO[Capture]()
	send := queue.NewFIFO[Record]()
	stats := &Stats{}

	s, err := NewStamper(motion.NewStability(), fixedPosition{}, capture, 20*time.Millisecond, stats, send)
	if err != nil {
		t.Fatalf("NewStamper err=%v", err)
	}

	if _, ok := s.StampOnce(context.Background()); ok {
		t.Fatalf("expected a miss")
	}
	if stats.StampMisses.Load() != 1 {
		t.Fatalf("miss not counted")
	}
	if send.Len() != 0 {
		t.Fatalf("nothing should be forwarded on a miss")
	}
}

func TestStampOnce_DiscardsBatchesReadBeforeSettle(t *testing.T) {
	capture := queue.NewFIFO[Capture]()
	send := queue.NewFIFO[Record]()
	stats := &Stats{}

	settled := time.Now()
	pos := fixedPosition{motion.Snapshot{Position: motion.Position{R: 8}, Counter: 2, At: settled}}
	s, err := NewStamper(motion.NewStability(), pos, capture, 50*time.Millisecond, stats, send)
	if err != nil {
		t.Fatalf("NewStamper err=%v", err)
	}

	old := []frame.Word{frame.Encode(1, 1, 1, 1, 0)}
	fresh := []frame.Word{frame.Encode(2, 2, 2, 2, 0)}
	capture.Push(Capture{At: settled.Add(-5 * time.Millisecond), Words: old})
	capture.Push(Capture{At: settled.Add(time.Millisecond), Words: fresh})

	rec, ok := s.StampOnce(context.Background())
	if !ok {
		t.Fatalf("expected a record")
	}
	if len(rec.Words) != 1 || rec.Words[0] != fresh[0] {
		t.Fatalf("paired with %v, want the batch read after settling", rec.Words)
	}
	if got := stats.Snapshot(); got.Stale != 1 || got.Stamped != 1 || got.StampMisses != 0 {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestStampOnce_OnlyStaleBatchesIsAMiss(t *testing.T) {
	capture := queue.NewFIFO[Capture]()
	send := queue.NewFIFO[Record]()
	stats := &Stats{}

	settled := time.Now()
	pos := fixedPosition{motion.Snapshot{At: settled}}
	s, err := NewStamper(motion.NewStability(), pos, capture, 20*time.Millisecond, stats, send)
	if err != nil {
		t.Fatalf("NewStamper err=%v", err)
	}

	for i := 1; i <= 3; i++ {
		capture.Push(Capture{At: settled.Add(-time.Duration(i) * time.Millisecond), Words: []frame.Word{1}})
	}

	if _, ok := s.StampOnce(context.Background()); ok {
		t.Fatalf("stamped a batch read before the head settled")
	}
	if got := stats.Snapshot(); got.Stale != 3 || got.StampMisses != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}
	if send.Len() != 0 || capture.Len() != 0 {
		t.Fatalf("send=%d capture=%d, want both empty", send.Len(), capture.Len())
	}
}

func TestStamperRun_WaitsForSignal(t *testing.T) {
	capture := queue.NewFIFO[Capture]()
	send := queue.NewFIFO[Record]()
	stable := motion.NewStability()

	s, err := NewStamper(stable, fixedPosition{}, capture, time.Second, nil, send)
	if err != nil {
		t.Fatalf("NewStamper err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	capture.Push(Capture{At: time.Now(), Words: []frame.Word{1}})
	time.Sleep(20 * time.Millisecond)
	if send.Len() != 0 {
		t.Fatalf("stamped without a stability signal")
	}

	stable.Signal()
	if _, ok := send.Pop(context.Background(), time.Second); !ok {
		t.Fatalf("no record after signal")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not exit")
	}
}

func TestGate_ChangedWakes(t *testing.T) {
	g := NewGate()
	ch := g.Changed()
	g.Disable() // no transition
	select {
	case <-ch:
		t.Fatalf("woke without a transition")
	default:
	}
	g.Enable()
	select {
	case <-ch:
	default:
		t.Fatalf("Enable did not wake waiters")
	}
	if !g.Enabled() {
		t.Fatalf("gate should be enabled")
	}
}
