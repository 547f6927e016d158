// internal/motion/actuator.go
package motion

import (
	"errors"
	"sync"
	"time"
)

// Actuator drives the step/direction inputs of the three motor drivers.
// One Pulse is one micro-step and blocks for the pulse high and low time.
type Actuator interface {
	SetDirection(axis Axis, forward bool) error
	Pulse(axis Axis) error
	Close() error
}

var ErrActuatorClosed = errors.New("actuator: closed")

// SimActuator is an in-memory actuator. It tracks the net step count per axis.
type SimActuator struct {
	mu       sync.Mutex
	delay    time.Duration
	forward  [len(Axes)]bool
	net      [len(Axes)]int
	pulses   [len(Axes)]int
	closed   bool
	closeCnt int
}

// NewSimActuator creates a simulated actuator; delay is the high (and low) time per pulse.
func NewSimActuator(delay time.Duration) *SimActuator {
	return &SimActuator{delay: delay}
}

func (s *SimActuator) SetDirection(axis Axis, forward bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrActuatorClosed
	}
	s.forward[axis] = forward
	return nil
}

func (s *SimActuator) Pulse(axis Axis) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrActuatorClosed
	}
	s.pulses[axis]++
	if s.forward[axis] {
		s.net[axis]++
	} else {
		s.net[axis]--
	}
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(2 * s.delay)
	}
	return nil
}

func (s *SimActuator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeCnt++
	return nil
}

// Net returns the signed step count accumulated on an axis.
func (s *SimActuator) Net(axis Axis) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net[axis]
}

// Pulses returns the total number of pulses issued on an axis.
func (s *SimActuator) Pulses(axis Axis) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulses[axis]
}

// CloseCount returns how many times Close was called.
func (s *SimActuator) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCnt
}
