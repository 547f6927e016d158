// internal/status/reporter.go
package status

import (
	"context"
	"errors"
	"time"

	"github.com/tamzrod/magscan/internal/monitoring"
)

// Source builds the current snapshot.
type Source func() Snapshot

type namedSink struct {
	name string
	sink Sink
}

// Reporter periodically fans the current snapshot out to every sink.
type Reporter struct {
	interval time.Duration
	source   Source
	sinks    []namedSink
}

func NewReporter(interval time.Duration, source Source) (*Reporter, error) {
	if source == nil {
		return nil, errors.New("status: source required")
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Reporter{interval: interval, source: source}, nil
}

// Add registers a sink under a name used in log lines.
func (r *Reporter) Add(name string, s Sink) {
	r.sinks = append(r.sinks, namedSink{name: name, sink: s})
}

// Len reports how many sinks are registered.
func (r *Reporter) Len() int { return len(r.sinks) }

// ReportOnce delivers one snapshot. Sink failures are logged, never fatal.
func (r *Reporter) ReportOnce() Snapshot {
	s := r.source()
	for _, ns := range r.sinks {
		if err := ns.sink.WriteStatus(s); err != nil {
			monitoring.Logf("[status] write failed (sink=%s): %v", ns.name, err)
		}
	}
	return s
}

func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReportOnce()
		}
	}
}
