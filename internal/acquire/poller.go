// internal/acquire/poller.go
package acquire

import (
	"errors"
	"time"

	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/monitoring"
	"github.com/tamzrod/magscan/internal/sensor"
)

// BatchSink receives a private copy of every good batch.
type BatchSink interface {
	Push([]frame.Word)
}

// CaptureSink receives every good batch with its read time.
type CaptureSink interface {
	Push(Capture)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	BatchWords   int
	Interval     time.Duration // between reads while enabled
	IdleInterval time.Duration // gate re-check while disabled
}

// Poller reads the sensor link while the gate is enabled.
type Poller struct {
	cfg   Config
	link  sensor.Link
	gate    *Gate
	capture CaptureSink
	sinks   []BatchSink
	stats   *Stats
}

// New creates a poller with immutable config. capture may be nil.
func New(cfg Config, link sensor.Link, gate *Gate, stats *Stats, capture CaptureSink, sinks ...BatchSink) (*Poller, error) {
	if link == nil {
		return nil, errors.New("acquire: link required")
	}
	if gate == nil {
		return nil, errors.New("acquire: gate required")
	}
	if cfg.BatchWords <= 0 {
		return nil, errors.New("acquire: batch words must be > 0")
	}
	if cfg.Interval <= 0 || cfg.IdleInterval <= 0 {
		return nil, errors.New("acquire: intervals must be > 0")
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Poller{cfg: cfg, link: link, gate: gate, capture: capture, sinks: sinks, stats: stats}, nil
}

// PollOnce performs exactly one read cycle.
// A short or failed read yields no frame for this cycle.
func (p *Poller) PollOnce() Batch {
	res := Batch{At: time.Now()}

	words, err := p.link.ReadWords(p.cfg.BatchWords)
	if err != nil {
		if errors.Is(err, sensor.ErrShortRead) {
			p.stats.ShortReads.Add(1)
		} else {
			p.stats.ReadErrors.Add(1)
		}
		res.Err = err
		return res
	}

	kept := make([]frame.Word, 0, len(words))
	for _, w := range words {
		if w == 0 {
			res.Empty++
			continue
		}
		kept = append(kept, w)
	}
	res.Words = kept
	res.ParityErrors = frame.CountParityErrors(kept)

	p.stats.Batches.Add(1)
	p.stats.Words.Add(uint64(len(kept)))
	p.stats.EmptySlots.Add(uint64(res.Empty))
	p.stats.ParityErrors.Add(uint64(res.ParityErrors))
	return res
}

// Stats returns the counters the poller updates.
func (p *Poller) Stats() *Stats { return p.stats }

func (p *Poller) dispatch(b Batch) {
	if b.ParityErrors > 0 {
		monitoring.Logf("[acquire] %d parity errors in batch of %d", b.ParityErrors, len(b.Words))
	}
	if len(b.Words) == 0 {
		return
	}
	if p.capture != nil {
		p.capture.Push(Capture{At: b.At, Words: append([]frame.Word(nil), b.Words...)})
	}
	for _, s := range p.sinks {
		s.Push(append([]frame.Word(nil), b.Words...))
	}
}
