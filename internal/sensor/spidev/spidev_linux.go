// internal/sensor/spidev/spidev_linux.go

//go:build linux

package spidev

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/sensor"
)

// spidev ioctl requests (_IOW('k', nr, size)).
const (
	spiIocWrMode        = 0x40016b01
	spiIocWrBitsPerWord = 0x40016b03
	spiIocWrMaxSpeedHz  = 0x40046b04
)

// Link talks to the FPGA over a spidev character device. Each word is
// its own transfer so chip select frames every 8 bytes.
type Link struct {
	mu     sync.Mutex
	fd     int
	device string
	closed bool
	settle time.Duration
}

func Open(cfg Config) (*Link, error) {
	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("spidev: open %s: %w", cfg.Device, err)
	}

	for _, s := range []struct {
		name string
		req  uint
		val  int
	}{
		{"mode", spiIocWrMode, int(cfg.Mode)},
		{"bits per word", spiIocWrBitsPerWord, int(cfg.BitsPerWord)},
		{"max speed", spiIocWrMaxSpeedHz, int(cfg.SpeedHz)},
	} {
		if err := unix.IoctlSetPointerInt(fd, s.req, s.val); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("spidev: set %s on %s: %w", s.name, cfg.Device, err)
		}
	}

	return &Link{fd: fd, device: cfg.Device, settle: sensor.CommandSettle}, nil
}

func (l *Link) ReadWords(n int) ([]frame.Word, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, sensor.ErrClosed
	}

	buf := make([]byte, n*sensor.WordSize)
	got := 0
	for i := 0; i < n; i++ {
		w := buf[i*sensor.WordSize : (i+1)*sensor.WordSize]
		m, err := readFull(l.fd, w)
		got += m
		if err != nil {
			return sensor.DecodeWords(buf[:got]), fmt.Errorf("spidev: read %s: %w", l.device, err)
		}
		if m < sensor.WordSize {
			return sensor.DecodeWords(buf[:got]), sensor.ErrShortRead
		}
	}
	return sensor.DecodeWords(buf), nil
}

func readFull(fd int, b []byte) (int, error) {
	for {
		n, err := unix.Read(fd, b)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

func (l *Link) Command(op sensor.Opcode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return sensor.ErrClosed
	}
	if _, err := unix.Write(l.fd, sensor.EncodeOpcode(op)); err != nil {
		return fmt.Errorf("spidev: write %s: %w", op, err)
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
	return unix.Close(l.fd)
}
