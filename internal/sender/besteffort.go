// internal/sender/besteffort.go
package sender

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/monitoring"
)

// BatchSource yields raw batches, newest first.
type BatchSource interface {
	Pop(ctx context.Context, timeout time.Duration) ([]frame.Word, bool)
}

type BestEffortConfig struct {
	Addr        string
	PollTimeout time.Duration
	Backoff     time.Duration
}

// BestEffort sends each batch as one datagram. Failures are counted
// and the next batch proceeds.
type BestEffort struct {
	cfg   BestEffortConfig
	src   BatchSource
	stats *Stats
}

func NewBestEffort(cfg BestEffortConfig, src BatchSource) (*BestEffort, error) {
	if cfg.Addr == "" {
		return nil, errors.New("best-effort: address required")
	}
	if src == nil {
		return nil, errors.New("best-effort: source required")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	return &BestEffort{cfg: cfg, src: src, stats: &Stats{}}, nil
}

func (b *BestEffort) Stats() *Stats { return b.stats }

func (b *BestEffort) Run(ctx context.Context) {
	var d net.Dialer
	for ctx.Err() == nil {
		conn, err := d.DialContext(ctx, "udp", b.cfg.Addr)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.stats.Reconnects.Add(1)
			monitoring.Logf("[datagram] resolve %s: %v (retry in %s)", b.cfg.Addr, err, b.cfg.Backoff)
			sleep(ctx, b.cfg.Backoff)
			continue
		}
		b.send(ctx, conn)
		_ = conn.Close()
	}
}

func (b *BestEffort) send(ctx context.Context, conn net.Conn) {
	for {
		words, ok := b.src.Pop(ctx, b.cfg.PollTimeout)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		payload, err := MarshalWords(words)
		if err == nil {
			_, err = conn.Write(payload)
		}
		if err != nil {
			b.stats.Failed.Add(1)
			monitoring.Logf("[datagram] send to %s failed: %v", b.cfg.Addr, err)
			continue
		}
		b.stats.Sent.Add(1)
	}
}
