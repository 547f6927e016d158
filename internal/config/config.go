// internal/config/config.go
package config

import (
	"time"

	"github.com/tamzrod/magscan/internal/motion"
)

type Config struct {
	Scanner ScannerConfig `yaml:"scanner"`
}

type ScannerConfig struct {
	Name        string            `yaml:"name"`
	Destination DestinationConfig `yaml:"destination"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Actuator    ActuatorConfig    `yaml:"actuator"`
	Sweep       SweepConfig       `yaml:"sweep"`
	Timing      TimingConfig      `yaml:"timing"`
	Queues      QueueConfig       `yaml:"queues"`
	Status      StatusConfig      `yaml:"status"`
	LiveFeed    LiveFeedConfig    `yaml:"live_feed"`
}

// ---- DESTINATION ----

// DestinationConfig names the workstation receiving data and the local
// command port. The positional CLI arguments override it.
type DestinationConfig struct {
	Host         string `yaml:"host"`
	DataPort     int    `yaml:"data_port"`
	ControlPort  int    `yaml:"control_port"`
	DatagramPort int    `yaml:"datagram_port"`
	ControlBind  string `yaml:"control_bind"`
}

// ---- SENSOR ----

const (
	SensorSPI    = "spi"
	SensorSerial = "serial"
	SensorSim    = "sim"
)

type SensorConfig struct {
	Kind          string `yaml:"kind"`
	Device        string `yaml:"device"`
	SpeedHz       uint32 `yaml:"speed_hz"`
	Mode          uint8  `yaml:"mode"`
	BitsPerWord   uint8  `yaml:"bits_per_word"`
	BaudRate      int    `yaml:"baud_rate"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	BatchWords    int    `yaml:"batch_words"`
	WasteBatches  int    `yaml:"waste_batches"`
}

// ---- ACTUATOR ----

const (
	ActuatorGPIO = "gpio"
	ActuatorSim  = "sim"
)

type ActuatorConfig struct {
	Kind        string     `yaml:"kind"`
	StepDelayUs int        `yaml:"step_delay_us"`
	GPIORoot    string     `yaml:"gpio_root"`
	Theta       AxisConfig `yaml:"theta"`
	R           AxisConfig `yaml:"r"`
	Z           AxisConfig `yaml:"z"`
}

type AxisConfig struct {
	StepPin int  `yaml:"step_pin"`
	DirPin  int  `yaml:"dir_pin"`
	Invert  bool `yaml:"invert"`
}

// ---- SWEEP ----

type SweepConfig struct {
	ThetaJump           int `yaml:"theta_jump"`
	FullRevolutionTheta int `yaml:"full_revolution_theta"`
	RJump               int `yaml:"r_jump"`
	RJumpHalf           int `yaml:"r_jump_half"`
	FullRevolutionR     int `yaml:"full_revolution_r"`
	ZJump               int `yaml:"z_jump"`
	ZJumpHalf           int `yaml:"z_jump_half"`
	FullRevolutionZ     int `yaml:"full_revolution_z"`
}

// ---- TIMING ----

type TimingConfig struct {
	StepIntervalMs     int `yaml:"step_interval_ms"`
	IdleIntervalMs     int `yaml:"idle_interval_ms"`
	PollIntervalMs     int `yaml:"poll_interval_ms"`
	StampTimeoutMs     int `yaml:"stamp_timeout_ms"`
	MoveTimeoutMs      int `yaml:"move_timeout_ms"`
	ReconnectBackoffMs int `yaml:"reconnect_backoff_ms"`
	WriteTimeoutMs     int `yaml:"write_timeout_ms"`
	IdleFlushMs        int `yaml:"idle_flush_ms"`
	ShutdownTimeoutMs  int `yaml:"shutdown_timeout_ms"`
}

// ---- QUEUES ----

type QueueConfig struct {
	DatagramDepth int `yaml:"datagram_depth"`
}

// ---- STATUS ----

type StatusConfig struct {
	IntervalMs int           `yaml:"interval_ms"`
	Modbus     *ModbusStatus `yaml:"modbus"` // optional, opt-in
	MQTT       *MQTTStatus   `yaml:"mqtt"`   // optional, opt-in
}

type ModbusStatus struct {
	Endpoint    string `yaml:"endpoint"`
	UnitID      uint8  `yaml:"unit_id"`
	BaseAddress uint16 `yaml:"base_address"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

type MQTTStatus struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// ---- LIVE FEED ----

type LiveFeedConfig struct {
	Listen string `yaml:"listen"` // empty disables the feed
	Buffer int    `yaml:"buffer"`
}

// Millis converts a millisecond config value.
func Millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// ApplyDestination overlays the positional CLI arguments.
func (c *Config) ApplyDestination(host string, dataPort, controlPort, datagramPort int) {
	d := &c.Scanner.Destination
	d.Host = host
	d.DataPort = dataPort
	d.ControlPort = controlPort
	d.DatagramPort = datagramPort
}

// Params converts the sweep section.
func (s SweepConfig) Params() motion.SweepParams {
	return motion.SweepParams{
		ThetaJump:           s.ThetaJump,
		FullRevolutionTheta: s.FullRevolutionTheta,
		RJump:               s.RJump,
		RJumpHalf:           s.RJumpHalf,
		FullRevolutionR:     s.FullRevolutionR,
		ZJump:               s.ZJump,
		ZJumpHalf:           s.ZJumpHalf,
		FullRevolutionZ:     s.FullRevolutionZ,
	}
}
