// internal/sensor/sim.go
package sensor

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/tamzrod/magscan/internal/frame"
)

var ErrClosed = errors.New("sensor: link closed")

// Sim produces a rotating field on all 64 channels.
type Sim struct {
	mu        sync.Mutex
	now       func() time.Time
	readout   bool
	pending   []frame.Word // acks waiting to be read
	next      int          // channel of the next generated word
	closed    bool
	commands  []Opcode
	amplitude float64
}

func NewSim() *Sim {
	return &Sim{now: time.Now, amplitude: 1000}
}

func (s *Sim) Command(op Opcode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.commands = append(s.commands, op)
	switch op {
	case OpReset:
		s.readout = false
		s.next = 0
		s.pending = append(s.pending, frame.Word(op), frame.Word(op))
	case OpStartReadout:
		s.readout = true
		s.pending = append(s.pending, frame.Word(op))
	case OpStopReadout:
		s.readout = false
	}
	return nil
}

func (s *Sim) ReadWords(n int) ([]frame.Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]frame.Word, 0, n)
	for len(out) < n && len(s.pending) > 0 {
		out = append(out, s.pending[0])
		s.pending = s.pending[1:]
	}
	if len(out) == n {
		return out, nil
	}
	if !s.readout {
		return out, ErrShortRead
	}

	t := float64(s.now().UnixNano()) / 1e9
	ts := uint8(s.now().UnixMilli())
	for len(out) < n {
		ch := s.next
		s.next = (s.next + 1) % frame.Channels
		angle := math.Mod(t*10+float64(ch), 2*math.Pi)
		x := int16(s.amplitude * math.Sin(angle))
		y := int16(s.amplitude * math.Cos(angle))
		z := int16(s.amplitude * math.Sin(angle+math.Pi/4))
		out = append(out, frame.Encode(ch, x, y, z, ts))
	}
	return out, nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Commands returns the opcodes received so far.
func (s *Sim) Commands() []Opcode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Opcode(nil), s.commands...)
}
