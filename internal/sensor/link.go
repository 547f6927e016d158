// internal/sensor/link.go
package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/monitoring"
)

// WordSize is the wire size of one sensor word.
const WordSize = 8

// Opcode is a 64-bit command understood by the readout FPGA.
type Opcode uint64

const (
	OpReset        Opcode = 0xA1A1A1A1A1A1A1A1
	OpStartReadout Opcode = 0x5151515151515151
	OpStopReadout  Opcode = 0x5252525252525252
)

func (o Opcode) String() string {
	switch o {
	case OpReset:
		return "reset"
	case OpStartReadout:
		return "start-readout"
	case OpStopReadout:
		return "stop-readout"
	default:
		return fmt.Sprintf("opcode(0x%016X)", uint64(o))
	}
}

// CommandSettle is how long the FPGA needs after a command.
const CommandSettle = 100 * time.Millisecond

// ErrShortRead reports that fewer words than requested arrived.
var ErrShortRead = errors.New("sensor: short read")

// Link is a byte-level connection to the sensor readout.
type Link interface {
	// ReadWords reads up to n big-endian words. On underrun it returns
	// the complete words received together with ErrShortRead.
	ReadWords(n int) ([]frame.Word, error)
	// Command writes op and waits for the FPGA to settle.
	Command(op Opcode) error
	Close() error
}

// Boot resets the FPGA, starts readout and discards waste batches of
// 64 words while the array settles.
func Boot(l Link, waste int) error {
	if err := l.Command(OpReset); err != nil {
		return fmt.Errorf("sensor: boot: %w", err)
	}
	if err := readAcks(l, 2); err != nil {
		return fmt.Errorf("sensor: boot reset ack: %w", err)
	}
	if err := l.Command(OpStartReadout); err != nil {
		return fmt.Errorf("sensor: boot: %w", err)
	}
	if err := readAcks(l, 1); err != nil {
		return fmt.Errorf("sensor: boot start ack: %w", err)
	}
	if waste > 0 {
		if _, err := l.ReadWords(waste * frame.Channels); err != nil {
			return fmt.Errorf("sensor: boot discard: %w", err)
		}
	}
	return nil
}

func readAcks(l Link, n int) error {
	acks, err := l.ReadWords(n)
	if err != nil {
		return err
	}
	for _, a := range acks {
		monitoring.Logf("[sensor] ack 0x%016X", uint64(a))
	}
	return nil
}

// Shutdown stops readout.
func Shutdown(l Link) error {
	if err := l.Command(OpStopReadout); err != nil {
		return fmt.Errorf("sensor: stop readout: %w", err)
	}
	return nil
}

// DecodeWords splits b into big-endian words, ignoring a trailing partial word.
func DecodeWords(b []byte) []frame.Word {
	out := make([]frame.Word, 0, len(b)/WordSize)
	for i := 0; i+WordSize <= len(b); i += WordSize {
		out = append(out, frame.Word(binary.BigEndian.Uint64(b[i:])))
	}
	return out
}

// EncodeOpcode returns the big-endian wire form of op.
func EncodeOpcode(op Opcode) []byte {
	var b [WordSize]byte
	binary.BigEndian.PutUint64(b[:], uint64(op))
	return b[:]
}
