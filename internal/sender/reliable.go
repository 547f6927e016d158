// internal/sender/reliable.go
package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/tamzrod/magscan/internal/acquire"
	"github.com/tamzrod/magscan/internal/monitoring"
)

// RecordSource yields stamped records in order.
type RecordSource interface {
	Pop(ctx context.Context, timeout time.Duration) (acquire.Record, bool)
}

type ReliableConfig struct {
	Addr         string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Backoff      time.Duration // fixed delay between connection attempts
	PollTimeout  time.Duration
}

// Reliable streams records over one persistent TCP connection.
// Records are only taken from the queue while connected; a record whose
// write fails is dropped, not replayed.
type Reliable struct {
	cfg   ReliableConfig
	src   RecordSource
	stats *Stats
}

func NewReliable(cfg ReliableConfig, src RecordSource) (*Reliable, error) {
	if cfg.Addr == "" {
		return nil, errors.New("reliable: address required")
	}
	if src == nil {
		return nil, errors.New("reliable: source required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	return &Reliable{cfg: cfg, src: src, stats: &Stats{}}, nil
}

func (r *Reliable) Stats() *Stats { return r.stats }

// Run connects, streams and reconnects until ctx is cancelled.
func (r *Reliable) Run(ctx context.Context) {
	d := net.Dialer{Timeout: r.cfg.DialTimeout}
	first := true

	for ctx.Err() == nil {
		if !first {
			r.stats.Reconnects.Add(1)
		}
		first = false

		conn, err := d.DialContext(ctx, "tcp", r.cfg.Addr)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			monitoring.Logf("[reliable] dial %s: %v (retry in %s)", r.cfg.Addr, err, r.cfg.Backoff)
			sleep(ctx, r.cfg.Backoff)
			continue
		}
		monitoring.Logf("[reliable] connected to %s", r.cfg.Addr)

		err = r.stream(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		monitoring.Logf("[reliable] connection to %s lost: %v (retry in %s)", r.cfg.Addr, err, r.cfg.Backoff)
		sleep(ctx, r.cfg.Backoff)
	}
}

func (r *Reliable) stream(ctx context.Context, conn net.Conn) error {
	for {
		rec, ok := r.src.Pop(ctx, r.cfg.PollTimeout)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		line, err := MarshalRecord(rec)
		if err != nil {
			r.stats.Failed.Add(1)
			monitoring.Logf("[reliable] dropping record counter=%d: %v", rec.Stamp.Counter, err)
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
		if err := writeAll(conn, line); err != nil {
			r.stats.Failed.Add(1)
			return fmt.Errorf("write counter=%d: %w", rec.Stamp.Counter, err)
		}
		r.stats.Sent.Add(1)
	}
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
