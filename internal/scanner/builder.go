// internal/scanner/builder.go
package scanner

import (
	"fmt"
	"time"

	"github.com/tamzrod/magscan/internal/config"
	"github.com/tamzrod/magscan/internal/motion"
	"github.com/tamzrod/magscan/internal/motion/gpio"
	"github.com/tamzrod/magscan/internal/sensor"
	"github.com/tamzrod/magscan/internal/sensor/spidev"
	"github.com/tamzrod/magscan/internal/sensor/uart"
	"github.com/tamzrod/magscan/internal/status"
	smodbus "github.com/tamzrod/magscan/internal/status/modbus"
	smqtt "github.com/tamzrod/magscan/internal/status/mqtt"
)

// OpenLink opens the sensor link selected by cfg.Kind.
// Assumes config has already passed validation.
func OpenLink(cfg config.SensorConfig) (sensor.Link, error) {
	switch cfg.Kind {
	case config.SensorSPI:
		l, err := spidev.Open(spidev.Config{
			Device:      cfg.Device,
			SpeedHz:     cfg.SpeedHz,
			Mode:        cfg.Mode,
			BitsPerWord: cfg.BitsPerWord,
		})
		if err != nil {
			return nil, err
		}
		return l, nil
	case config.SensorSerial:
		l, err := uart.Open(uart.Config{
			Path:        cfg.Device,
			BaudRate:    cfg.BaudRate,
			ReadTimeout: config.Millis(cfg.ReadTimeoutMs),
		})
		if err != nil {
			return nil, err
		}
		return l, nil
	case config.SensorSim:
		return sensor.NewSim(), nil
	default:
		return nil, fmt.Errorf("scanner: unknown sensor kind %q", cfg.Kind)
	}
}

// OpenActuator opens the stepper drivers selected by cfg.Kind.
func OpenActuator(cfg config.ActuatorConfig) (motion.Actuator, error) {
	delay := time.Duration(cfg.StepDelayUs) * time.Microsecond

	switch cfg.Kind {
	case config.ActuatorGPIO:
		pins := func(a config.AxisConfig) gpio.Pins {
			return gpio.Pins{Step: a.StepPin, Dir: a.DirPin, Invert: a.Invert}
		}
		a, err := gpio.Open(gpio.Config{
			Root:  cfg.GPIORoot,
			Delay: delay,
			Theta: pins(cfg.Theta),
			R:     pins(cfg.R),
			Z:     pins(cfg.Z),
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.ActuatorSim:
		return motion.NewSimActuator(delay), nil
	default:
		return nil, fmt.Errorf("scanner: unknown actuator kind %q", cfg.Kind)
	}
}

type namedSink struct {
	name string
	sink status.Sink
}

// buildStatusSinks connects every configured status sink.
// The returned closer releases all of them.
func buildStatusSinks(s config.ScannerConfig) ([]namedSink, func() error, error) {
	var (
		sinks   []namedSink
		closers []func() error
	)

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	if m := s.Status.Modbus; m != nil {
		cli, err := smodbus.NewClient(smodbus.Config{
			Endpoint: m.Endpoint,
			UnitID:   m.UnitID,
			Timeout:  config.Millis(m.TimeoutMs),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("scanner: status modbus %s: %w", m.Endpoint, err)
		}
		closers = append(closers, cli.Close)

		w, err := status.NewBlockWriter(cli, m.BaseAddress, s.Name)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, namedSink{name: "modbus", sink: w})
	}

	if q := s.Status.MQTT; q != nil {
		p, err := smqtt.Connect(smqtt.Config{
			Broker:   q.Broker,
			ClientID: q.ClientID,
			Topic:    q.Topic,
			QoS:      q.QoS,
		})
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("scanner: %w", err)
		}
		closers = append(closers, p.Close)
		sinks = append(sinks, namedSink{name: "mqtt", sink: p})
	}

	return sinks, closeAll, nil
}
