// internal/motion/gpio/actuator_linux.go

//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tamzrod/magscan/internal/motion"
)

type line struct {
	num int
	fd  int
}

// Actuator drives step/direction lines through the sysfs GPIO interface.
type Actuator struct {
	cfg    Config
	step   [len(motion.Axes)]line
	dir    [len(motion.Axes)]line
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

// Open exports and configures all six lines as outputs.
func Open(cfg Config) (*Actuator, error) {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &Actuator{cfg: cfg}
	for _, ax := range motion.Axes {
		p := cfg.pins(ax)
		step, err := a.openLine(p.Step)
		if err != nil {
			a.release()
			return nil, fmt.Errorf("gpio: %s step: %w", ax, err)
		}
		a.step[ax] = step

		dir, err := a.openLine(p.Dir)
		if err != nil {
			a.release()
			return nil, fmt.Errorf("gpio: %s dir: %w", ax, err)
		}
		a.dir[ax] = dir
	}
	return a, nil
}

func (a *Actuator) openLine(num int) (line, error) {
	n := strconv.Itoa(num)

	// EBUSY means the line is already exported.
	if err := writeFile(filepath.Join(a.cfg.Root, "export"), n); err != nil && !errors.Is(err, unix.EBUSY) {
		return line{fd: -1}, fmt.Errorf("export %d: %w", num, err)
	}
	base := filepath.Join(a.cfg.Root, "gpio"+n)
	if err := writeFile(filepath.Join(base, "direction"), "out"); err != nil {
		return line{fd: -1}, fmt.Errorf("direction %d: %w", num, err)
	}
	fd, err := unix.Open(filepath.Join(base, "value"), unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return line{fd: -1}, fmt.Errorf("open value %d: %w", num, err)
	}
	return line{num: num, fd: fd}, nil
}

func (a *Actuator) SetDirection(axis motion.Axis, forward bool) error {
	level := forward != a.cfg.pins(axis).Invert
	return a.set(a.dir[axis], level)
}

func (a *Actuator) Pulse(axis motion.Axis) error {
	l := a.step[axis]
	if err := a.set(l, true); err != nil {
		return err
	}
	time.Sleep(a.cfg.Delay)
	if err := a.set(l, false); err != nil {
		return err
	}
	time.Sleep(a.cfg.Delay)
	return nil
}

func (a *Actuator) set(l line, high bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return motion.ErrActuatorClosed
	}
	v := []byte{'0'}
	if high {
		v[0] = '1'
	}
	if _, err := unix.Seek(l.fd, 0, 0); err != nil {
		return fmt.Errorf("gpio %d: seek: %w", l.num, err)
	}
	if _, err := unix.Write(l.fd, v); err != nil {
		return fmt.Errorf("gpio %d: write: %w", l.num, err)
	}
	return nil
}

// Close drives the lines low and unexports them. Safe to call more than once.
func (a *Actuator) Close() error {
	var err error
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()
		err = a.release()
	})
	return err
}

func (a *Actuator) release() error {
	var first error
	for _, ls := range [...]*[len(motion.Axes)]line{&a.step, &a.dir} {
		for i := range ls {
			l := ls[i]
			if l.fd <= 0 {
				continue
			}
			_, _ = unix.Write(l.fd, []byte{'0'})
			_ = unix.Close(l.fd)
			if err := writeFile(filepath.Join(a.cfg.Root, "unexport"), strconv.Itoa(l.num)); err != nil && first == nil {
				first = fmt.Errorf("gpio: unexport %d: %w", l.num, err)
			}
			ls[i].fd = 0
		}
	}
	return first
}

func writeFile(path, v string) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	_, err = unix.Write(fd, []byte(v))
	return err
}
