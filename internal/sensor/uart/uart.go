// internal/sensor/uart/uart.go
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/sensor"
)

// Config selects a UART bridge in front of the readout FPGA.
type Config struct {
	Path        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Port is the part of serial.Port the link uses.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Link carries the same 8-byte words as the SPI link over a serial line.
type Link struct {
	mu      sync.Mutex
	port    Port
	timeout time.Duration
	settle  time.Duration
	closed  bool
}

// Open opens the serial device 8N1 at the configured baud rate.
func Open(cfg Config) (*Link, error) {
	if cfg.Path == "" {
		return nil, errors.New("uart: path is empty")
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", cfg.Path, err)
	}
	l, err := New(port, cfg.ReadTimeout)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return l, nil
}

// New wraps an already open port.
func New(port Port, readTimeout time.Duration) (*Link, error) {
	if port == nil {
		return nil, errors.New("uart: port is nil")
	}
	if readTimeout <= 0 {
		readTimeout = 100 * time.Millisecond
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		return nil, fmt.Errorf("uart: set read timeout: %w", err)
	}
	return &Link{port: port, timeout: readTimeout, settle: sensor.CommandSettle}, nil
}

func (l *Link) ReadWords(n int) ([]frame.Word, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, sensor.ErrClosed
	}

	buf := make([]byte, n*sensor.WordSize)
	got, err := l.readExact(buf)
	words := sensor.DecodeWords(buf[:got])
	if err != nil {
		return words, fmt.Errorf("uart: read: %w", err)
	}
	if got < len(buf) {
		return words, sensor.ErrShortRead
	}
	return words, nil
}

// readExact fills buf or stops at the first read that times out
// (serial ports report a timeout as 0, nil).
func (l *Link) readExact(buf []byte) (int, error) {
	got := 0
	for got < len(buf) {
		n, err := l.port.Read(buf[got:])
		got += n
		if err != nil {
			return got, err
		}
		if n == 0 {
			break
		}
	}
	return got, nil
}

func (l *Link) Command(op sensor.Opcode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return sensor.ErrClosed
	}
	// stale bytes from a previous session would misalign the acks
	if op == sensor.OpReset {
		if err := l.port.ResetInputBuffer(); err != nil {
			return fmt.Errorf("uart: flush input: %w", err)
		}
	}
	b := sensor.EncodeOpcode(op)
	for len(b) > 0 {
		n, err := l.port.Write(b)
		if err != nil {
			return fmt.Errorf("uart: write %s: %w", op, err)
		}
		if n == 0 {
			return fmt.Errorf("uart: write %s: %w", op, io.ErrShortWrite)
		}
		b = b[n:]
	}
	time.Sleep(l.settle)
	return nil
}

func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.port.Close()
}
