// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration of the bench scanner.
func Default() *Config {
	return &Config{
		Scanner: ScannerConfig{
			Name: "magscan",
			Destination: DestinationConfig{
				ControlBind: "0.0.0.0",
			},
			Sensor: SensorConfig{
				Kind:          SensorSPI,
				Device:        "/dev/spidev0.0",
				SpeedHz:       10_000_000,
				Mode:          3,
				BitsPerWord:   8,
				BaudRate:      921600,
				ReadTimeoutMs: 100,
				BatchWords:    64,
				WasteBatches:  5,
			},
			Actuator: ActuatorConfig{
				Kind:        ActuatorGPIO,
				StepDelayUs: 1000,
				GPIORoot:    "/sys/class/gpio",
				Theta:       AxisConfig{StepPin: 5, DirPin: 6},
				R:           AxisConfig{StepPin: 17, DirPin: 27},
				Z:           AxisConfig{StepPin: 23, DirPin: 24},
			},
			Sweep: SweepConfig{
				ThetaJump:           1,
				FullRevolutionTheta: 200,
				RJump:               4480,
				RJumpHalf:           280,
				FullRevolutionR:     22400,
				ZJump:               4480,
				ZJumpHalf:           280,
				FullRevolutionZ:     22400,
			},
			Timing: TimingConfig{
				StepIntervalMs:     10,
				IdleIntervalMs:     100,
				PollIntervalMs:     10,
				StampTimeoutMs:     2000,
				MoveTimeoutMs:      120000,
				ReconnectBackoffMs: 2000,
				WriteTimeoutMs:     2000,
				IdleFlushMs:        200,
				ShutdownTimeoutMs:  2000,
			},
			Queues: QueueConfig{DatagramDepth: 1000},
			Status: StatusConfig{IntervalMs: 1000},
			LiveFeed: LiveFeedConfig{
				Buffer: 64,
			},
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
