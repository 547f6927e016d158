// internal/acquire/stamper.go
package acquire

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/monitoring"
	"github.com/tamzrod/magscan/internal/motion"
)

// DefaultMissTimeout bounds how long a stamp waits for its batch.
const DefaultMissTimeout = 2 * time.Second

// Settled is raised once per completed sweep step.
type Settled interface {
	Wait(ctx context.Context) bool
}

// PositionSource publishes the controller state.
type PositionSource interface {
	Snapshot() motion.Snapshot
}

// BatchSource yields captured batches in arrival order.
type BatchSource interface {
	Pop(ctx context.Context, timeout time.Duration) (Capture, bool)
}

// RecordSink receives stamped records.
type RecordSink interface {
	Push(Record)
}

// Stamper pairs the next captured batch with the position the head
// settled at.
type Stamper struct {
	settled Settled
	pos     PositionSource
	capture BatchSource
	timeout time.Duration
	stats   *Stats
	sinks   []RecordSink
}

func NewStamper(settled Settled, pos PositionSource, capture BatchSource, timeout time.Duration, stats *Stats, sinks ...RecordSink) (*Stamper, error) {
	if settled == nil || pos == nil || capture == nil {
		return nil, errors.New("acquire: stamper needs a signal, a position source and a batch source")
	}
	if len(sinks) == 0 {
		return nil, errors.New("acquire: stamper needs at least one sink")
	}
	if timeout <= 0 {
		timeout = DefaultMissTimeout
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Stamper{
		settled: settled,
		pos:     pos,
		capture: capture,
		timeout: timeout,
		stats:   stats,
		sinks:   sinks,
	}, nil
}

// Run stamps until ctx is cancelled.
func (s *Stamper) Run(ctx context.Context) {
	for {
		if !s.settled.Wait(ctx) {
			return
		}
		if _, ok := s.StampOnce(ctx); !ok && ctx.Err() != nil {
			return
		}
	}
}

// StampOnce snapshots the position and waits for the first batch read
// after the head settled. Older captures are discarded as stale.
func (s *Stamper) StampOnce(ctx context.Context) (Record, bool) {
	snap := s.pos.Snapshot()
	st := Stamp{
		Theta:   snap.Position.Theta,
		R:       snap.Position.R,
		Z:       snap.Position.Z,
		Counter: snap.Counter,
	}

	words, stale, ok := s.nextFresh(ctx, snap.At)
	if stale > 0 {
		s.stats.Stale.Add(uint64(stale))
		monitoring.Logf("[stamp] discarded %d stale batches (counter=%d)", stale, st.Counter)
	}
	if !ok {
		if ctx.Err() == nil {
			s.stats.StampMisses.Add(1)
			monitoring.Logf("[stamp] no batch within %s (counter=%d)", s.timeout, st.Counter)
		}
		return Record{}, false
	}

	rec := Record{Stamp: st, Words: words}
	for _, sink := range s.sinks {
		sink.Push(rec)
	}
	s.stats.Stamped.Add(1)
	return rec, true
}

// nextFresh pops until a capture read at or after settled arrives. The
// timeout covers all pops together.
func (s *Stamper) nextFresh(ctx context.Context, settled time.Time) ([]frame.Word, int, bool) {
	deadline := time.Now().Add(s.timeout)
	stale := 0
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, stale, false
		}
		c, ok := s.capture.Pop(ctx, left)
		if !ok {
			return nil, stale, false
		}
		if c.At.Before(settled) {
			stale++
			continue
		}
		return c.Words, stale, true
	}
}
