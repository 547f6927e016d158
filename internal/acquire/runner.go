// internal/acquire/runner.go
package acquire

import (
	"context"
	"time"

	"github.com/tamzrod/magscan/internal/monitoring"
)

// Run polls until ctx is cancelled. The link is only touched while
// the gate is enabled. No overlap. No retries.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if !p.gate.Enabled() {
			wait(ctx, p.cfg.IdleInterval, p.gate.Changed())
			continue
		}

		b := p.PollOnce()
		if b.Err != nil {
			monitoring.Logf("[acquire] read failed: %v", b.Err)
		} else {
			p.dispatch(b)
		}
		wait(ctx, p.cfg.Interval, nil)
	}
}

func wait(ctx context.Context, d time.Duration, wake <-chan struct{}) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	case <-wake:
	}
}
