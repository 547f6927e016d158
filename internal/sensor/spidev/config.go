// internal/sensor/spidev/config.go
package spidev

// Config selects the SPI device the readout FPGA is wired to.
type Config struct {
	Device      string // e.g. /dev/spidev0.0
	SpeedHz     uint32
	Mode        uint8
	BitsPerWord uint8
}

func DefaultConfig() Config {
	return Config{
		Device:      "/dev/spidev0.0",
		SpeedHz:     10_000_000,
		Mode:        3,
		BitsPerWord: 8,
	}
}
