// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/magscan/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	s := cfg.Scanner

	// scanner name sanity (ASCII only)
	for i := 0; i < len(s.Name); i++ {
		if s.Name[i] > 0x7F {
			return fmt.Errorf("scanner name %q must contain ASCII characters only", s.Name)
		}
	}

	// ------------------------------------------------------------
	// DESTINATION
	// ------------------------------------------------------------
	if s.Destination.Host == "" {
		return fmt.Errorf("destination.host is required")
	}
	for _, p := range []struct {
		name string
		port int
	}{
		{"data_port", s.Destination.DataPort},
		{"control_port", s.Destination.ControlPort},
		{"datagram_port", s.Destination.DatagramPort},
	} {
		if p.port <= 0 || p.port > 65535 {
			return fmt.Errorf("destination.%s %d out of range", p.name, p.port)
		}
	}

	// ------------------------------------------------------------
	// SENSOR
	// ------------------------------------------------------------
	switch s.Sensor.Kind {
	case SensorSPI, SensorSerial:
		if s.Sensor.Device == "" {
			return fmt.Errorf("sensor.device is required for kind %q", s.Sensor.Kind)
		}
	case SensorSim:
	default:
		return fmt.Errorf("sensor.kind %q unknown (want spi, serial or sim)", s.Sensor.Kind)
	}
	if s.Sensor.Kind == SensorSPI && s.Sensor.Mode > 3 {
		return fmt.Errorf("sensor.mode %d out of range", s.Sensor.Mode)
	}
	if s.Sensor.Kind == SensorSerial && s.Sensor.BaudRate <= 0 {
		return fmt.Errorf("sensor.baud_rate must be > 0")
	}
	if s.Sensor.BatchWords <= 0 {
		return fmt.Errorf("sensor.batch_words must be > 0")
	}
	if s.Sensor.WasteBatches < 0 {
		return fmt.Errorf("sensor.waste_batches must be >= 0")
	}

	// ------------------------------------------------------------
	// ACTUATOR
	// ------------------------------------------------------------
	switch s.Actuator.Kind {
	case ActuatorGPIO:
		owner := make(map[int]string)
		for _, a := range []struct {
			name string
			cfg  AxisConfig
		}{
			{"theta", s.Actuator.Theta},
			{"r", s.Actuator.R},
			{"z", s.Actuator.Z},
		} {
			for _, pin := range []int{a.cfg.StepPin, a.cfg.DirPin} {
				if pin < 0 {
					return fmt.Errorf("actuator.%s pin %d invalid", a.name, pin)
				}
				if prev, exists := owner[pin]; exists {
					return fmt.Errorf("gpio pin collision: pin %d used by %s and %s", pin, prev, a.name)
				}
				owner[pin] = a.name
			}
		}
	case ActuatorSim:
	default:
		return fmt.Errorf("actuator.kind %q unknown (want gpio or sim)", s.Actuator.Kind)
	}
	if s.Actuator.StepDelayUs < 0 {
		return fmt.Errorf("actuator.step_delay_us must be >= 0")
	}

	// ------------------------------------------------------------
	// SWEEP
	// ------------------------------------------------------------
	if err := s.Sweep.Params().Validate(); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// TIMING (step interval may be zero)
	// ------------------------------------------------------------
	t := s.Timing
	if t.StepIntervalMs < 0 {
		return fmt.Errorf("timing.step_interval_ms must be >= 0")
	}
	for _, v := range []struct {
		name string
		ms   int
	}{
		{"idle_interval_ms", t.IdleIntervalMs},
		{"poll_interval_ms", t.PollIntervalMs},
		{"stamp_timeout_ms", t.StampTimeoutMs},
		{"move_timeout_ms", t.MoveTimeoutMs},
		{"reconnect_backoff_ms", t.ReconnectBackoffMs},
		{"write_timeout_ms", t.WriteTimeoutMs},
		{"idle_flush_ms", t.IdleFlushMs},
		{"shutdown_timeout_ms", t.ShutdownTimeoutMs},
	} {
		if v.ms <= 0 {
			return fmt.Errorf("timing.%s must be > 0", v.name)
		}
	}

	if s.Queues.DatagramDepth <= 0 {
		return fmt.Errorf("queues.datagram_depth must be > 0")
	}

	// ------------------------------------------------------------
	// STATUS (OPT-IN SINKS)
	// ------------------------------------------------------------
	if s.Status.IntervalMs <= 0 {
		return fmt.Errorf("status.interval_ms must be > 0")
	}
	if m := s.Status.Modbus; m != nil {
		if m.Endpoint == "" {
			return fmt.Errorf("status.modbus.endpoint is required")
		}
		// status block MUST fit in the register space
		if int(m.BaseAddress)+status.SlotsPerBlock > 0x10000 {
			return fmt.Errorf("status.modbus.base_address %d: block exceeds register space", m.BaseAddress)
		}
	}
	if q := s.Status.MQTT; q != nil {
		if q.Broker == "" || q.Topic == "" {
			return fmt.Errorf("status.mqtt needs broker and topic")
		}
		if q.QoS > 2 {
			return fmt.Errorf("status.mqtt.qos %d out of range", q.QoS)
		}
	}

	if s.LiveFeed.Listen != "" && s.LiveFeed.Buffer <= 0 {
		return fmt.Errorf("live_feed.buffer must be > 0")
	}

	return nil
}
