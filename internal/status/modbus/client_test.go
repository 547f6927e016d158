// internal/status/modbus/client_test.go
package modbus

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"
)

func TestPackRegisters_BigEndian(t *testing.T) {
	got := packRegisters([]uint16{0x1234, 0xABCD})
	want := []byte{0x12, 0x34, 0xAB, 0xCD}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got=%02x want=%02x", i, got[i], want[i])
		}
	}
}

// fc16Server answers count Write Multiple Registers requests on one
// connection and returns the request PDUs it saw.
func fc16Server(t *testing.T, ln net.Listener, count int) <-chan []byte {
	t.Helper()
	out := make(chan []byte, count)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

		for i := 0; i < count; i++ {
			var mbap [7]byte
			if _, err := io.ReadFull(conn, mbap[:]); err != nil {
				return
			}
			n := binary.BigEndian.Uint16(mbap[4:6]) - 1
			pdu := make([]byte, n)
			if _, err := io.ReadFull(conn, pdu); err != nil {
				return
			}
			out <- pdu

			// echo function, address and quantity
			resp := make([]byte, 7+5)
			copy(resp, mbap[:4])
			binary.BigEndian.PutUint16(resp[4:6], 6)
			resp[6] = mbap[6]
			copy(resp[7:], pdu[:5])
			if _, err := conn.Write(resp); err != nil {
				return
			}
		}
	}()
	return out
}

func TestClient_WriteRegisters(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	seen := fc16Server(t, ln, 1)

	c, err := NewClient(Config{Endpoint: ln.Addr().String(), UnitID: 3, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient err=%v", err)
	}
	defer c.Close()

	if err := c.WriteRegisters(105, []uint16{1, 0xBEEF}); err != nil {
		t.Fatalf("WriteRegisters err=%v", err)
	}

	pdu := <-seen
	if pdu[0] != 16 {
		t.Fatalf("function code=%d want 16", pdu[0])
	}
	if addr := binary.BigEndian.Uint16(pdu[1:3]); addr != 105 {
		t.Fatalf("addr=%d want 105", addr)
	}
	if qty := binary.BigEndian.Uint16(pdu[3:5]); qty != 2 {
		t.Fatalf("qty=%d want 2", qty)
	}
	if pdu[5] != 4 || pdu[8] != 0xBE || pdu[9] != 0xEF {
		t.Fatalf("unexpected payload % x", pdu[5:])
	}
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}

func TestClient_WriteRegistersSplitsLongBlocks(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	seen := fc16Server(t, ln, 2)

	c, err := NewClient(Config{Endpoint: ln.Addr().String(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient err=%v", err)
	}
	defer c.Close()

	regs := make([]uint16, MaxWriteRegisters+7)
	if err := c.WriteRegisters(1000, regs); err != nil {
		t.Fatalf("WriteRegisters err=%v", err)
	}

	first, second := <-seen, <-seen
	if qty := binary.BigEndian.Uint16(first[3:5]); qty != MaxWriteRegisters {
		t.Fatalf("first qty=%d want %d", qty, MaxWriteRegisters)
	}
	if addr := binary.BigEndian.Uint16(second[1:3]); addr != 1000+MaxWriteRegisters {
		t.Fatalf("second addr=%d want %d", addr, 1000+MaxWriteRegisters)
	}
	if qty := binary.BigEndian.Uint16(second[3:5]); qty != 7 {
		t.Fatalf("second qty=%d want 7", qty)
	}
}

func TestNewClient_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := NewClient(Config{Endpoint: addr, Timeout: 200 * time.Millisecond}); err == nil {
		t.Fatalf("expected dial error")
	}
}
