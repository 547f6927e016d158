// internal/status/writer.go
package status

import (
	"errors"
	"fmt"
	"strings"
)

// RegisterClient writes holding registers on the status endpoint.
type RegisterClient interface {
	WriteRegisters(addr uint16, regs []uint16) error
}

// Sink is the delivery-only contract for scanner status.
// It receives a snapshot and delivers it verbatim.
type Sink interface {
	WriteStatus(s Snapshot) error
}

// field is a run of slots updated together.
type field struct {
	name  string
	start int
	n     int
}

var liveFields = []field{
	{"state", SlotState, 1},
	{"enabled", SlotEnabled, 1},
	{"theta", SlotTheta, 1},
	{"r", SlotR, 1},
	{"z", SlotZ, 1},
	{"counter", SlotCounterHi, 2}, // hi/lo written together
	{"parity_errors", SlotParityErrors, 1},
	{"stamp_misses", SlotStampMisses, 1},
	{"short_reads", SlotShortReads, 1},
}

// BlockWriter mirrors the status block into a register map.
// The first write and the first write after any failure re-assert the
// whole block (name included); otherwise only changed fields are written.
type BlockWriter struct {
	cli  RegisterClient
	base uint16
	name string

	needFull bool
	last     []uint16
}

func NewBlockWriter(cli RegisterClient, baseAddr uint16, name string) (*BlockWriter, error) {
	if cli == nil {
		return nil, errors.New("status writer: client required")
	}
	if int(baseAddr)+SlotsPerBlock > 0x10000 {
		return nil, fmt.Errorf("status writer: block at %d exceeds register space", baseAddr)
	}
	return &BlockWriter{cli: cli, base: baseAddr, name: name, needFull: true}, nil
}

func (w *BlockWriter) WriteStatus(s Snapshot) error {
	regs := Encode(s, w.name)

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if w.needFull {
		if err := w.cli.WriteRegisters(w.base, regs); err != nil {
			w.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		w.needFull = false
		w.last = regs
		return nil
	}

	var errs []string
	for _, f := range liveFields {
		cur := regs[f.start : f.start+f.n]
		if equal(cur, w.last[f.start:f.start+f.n]) {
			continue
		}
		if err := w.cli.WriteRegisters(w.base+uint16(f.start), cur); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", f.start, f.name, err))
			continue
		}
		copy(w.last[f.start:], cur)
	}

	if len(errs) > 0 {
		// any partial failure introduces doubt: re-assert on next success
		w.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func equal(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
