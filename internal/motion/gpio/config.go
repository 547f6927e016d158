// internal/motion/gpio/config.go
package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/magscan/internal/motion"
)

// DefaultRoot is the sysfs GPIO class directory.
const DefaultRoot = "/sys/class/gpio"

// Pins are the BCM line numbers driving one stepper driver.
type Pins struct {
	Step   int
	Dir    int
	Invert bool // swap the meaning of the direction line
}

// Config describes the three stepper drivers.
type Config struct {
	Root  string
	Delay time.Duration // pulse high time; the low time is the same
	Theta Pins
	R     Pins
	Z     Pins
}

func (c Config) pins(a motion.Axis) Pins {
	switch a {
	case motion.AxisTheta:
		return c.Theta
	case motion.AxisR:
		return c.R
	default:
		return c.Z
	}
}

func (c Config) validate() error {
	if c.Delay < 0 {
		return errors.New("gpio: delay must be >= 0")
	}
	seen := map[int]motion.Axis{}
	for _, a := range motion.Axes {
		p := c.pins(a)
		for _, n := range [...]int{p.Step, p.Dir} {
			if n < 0 {
				return fmt.Errorf("gpio: %s pin %d invalid", a, n)
			}
			if other, ok := seen[n]; ok {
				return fmt.Errorf("gpio: pin %d used by both %s and %s", n, other, a)
			}
			seen[n] = a
		}
	}
	return nil
}
