// internal/status/modbus/client.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// MaxWriteRegisters is the FC16 quantity limit of one request.
const MaxWriteRegisters = 123

type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// Client mirrors the status block into a remote register map over
// Modbus TCP. After a failed request the connection is dropped and the
// next request dials again.
type Client struct {
	mu       sync.Mutex
	endpoint string
	tcp      *modbus.TCPClientHandler
	mb       modbus.Client
}

// NewClient dials once so a wrong endpoint surfaces at startup.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("status modbus: endpoint required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	tcp := modbus.NewTCPClientHandler(cfg.Endpoint)
	tcp.Timeout = timeout
	tcp.IdleTimeout = 0
	tcp.SlaveId = cfg.UnitID
	if err := tcp.Connect(); err != nil {
		return nil, fmt.Errorf("status modbus: dial %s: %w", cfg.Endpoint, err)
	}

	return &Client{endpoint: cfg.Endpoint, tcp: tcp, mb: modbus.NewClient(tcp)}, nil
}

// WriteRegisters writes regs starting at addr with FC16, split into
// requests of at most MaxWriteRegisters.
func (c *Client) WriteRegisters(addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(regs) > 0 {
		n := min(len(regs), MaxWriteRegisters)
		if _, err := c.mb.WriteMultipleRegisters(addr, uint16(n), packRegisters(regs[:n])); err != nil {
			// goburrow redials on the next Send once closed
			_ = c.tcp.Close()
			return fmt.Errorf("status modbus: %s write %d@%d: %w", c.endpoint, n, addr, err)
		}
		addr += uint16(n)
		regs = regs[n:]
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tcp.Close()
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, 0, 2*len(regs))
	for _, r := range regs {
		out = binary.BigEndian.AppendUint16(out, r)
	}
	return out
}
