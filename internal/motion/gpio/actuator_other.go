// internal/motion/gpio/actuator_other.go

//go:build !linux

package gpio

import (
	"errors"

	"github.com/tamzrod/magscan/internal/motion"
)

var errUnsupported = errors.New("gpio: sysfs GPIO not supported on this platform")

// Actuator is unavailable off Linux.
type Actuator struct{}

func Open(cfg Config) (*Actuator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return nil, errUnsupported
}

func (a *Actuator) SetDirection(motion.Axis, bool) error { return errUnsupported }
func (a *Actuator) Pulse(motion.Axis) error              { return errUnsupported }
func (a *Actuator) Close() error                         { return nil }
