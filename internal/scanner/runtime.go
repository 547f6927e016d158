// internal/scanner/runtime.go
package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/magscan/internal/acquire"
	"github.com/tamzrod/magscan/internal/config"
	"github.com/tamzrod/magscan/internal/control"
	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/geometry"
	"github.com/tamzrod/magscan/internal/livefeed"
	"github.com/tamzrod/magscan/internal/monitoring"
	"github.com/tamzrod/magscan/internal/motion"
	"github.com/tamzrod/magscan/internal/queue"
	"github.com/tamzrod/magscan/internal/sender"
	"github.com/tamzrod/magscan/internal/sensor"
	"github.com/tamzrod/magscan/internal/status"
)

// Runtime owns every long-lived component of one scanner.
type Runtime struct {
	id  string
	cfg config.ScannerConfig

	link sensor.Link
	act  motion.Actuator

	gate       *acquire.Gate
	ctrl       *motion.Controller
	stats      *acquire.Stats
	poller     *acquire.Poller
	stamper    *acquire.Stamper
	reliable   *sender.Reliable
	bestEffort *sender.BestEffort
	server     *control.Server
	reporter   *status.Reporter

	hub   *livefeed.Hub
	feed  net.Listener
	ctlLn net.Listener

	capture  *queue.FIFO[acquire.Capture]
	records  *queue.FIFO[acquire.Record]
	datagram *queue.Latest[[]frame.Word]

	closeSinks func() error
	cleanup    sync.Once
	cleanupErr error
}

// New opens the hardware, boots the sensor and wires the pipeline.
// Nothing runs until Run. Any startup failure releases what was opened.
func New(cfg *config.Config) (rt *Runtime, err error) {
	if cfg == nil {
		return nil, errors.New("scanner: config required")
	}
	s := cfg.Scanner
	rt = &Runtime{id: uuid.NewString(), cfg: s, closeSinks: func() error { return nil }}

	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	// --------------------
	// Hardware
	// --------------------

	if rt.link, err = OpenLink(s.Sensor); err != nil {
		return rt, fmt.Errorf("scanner: sensor: %w", err)
	}
	if err = sensor.Boot(rt.link, s.Sensor.WasteBatches); err != nil {
		return rt, err
	}
	if rt.act, err = OpenActuator(s.Actuator); err != nil {
		return rt, fmt.Errorf("scanner: actuator: %w", err)
	}

	// --------------------
	// Motion
	// --------------------

	sw, err := motion.NewSweeper(s.Sweep.Params(), rt.act)
	if err != nil {
		return rt, err
	}
	rt.gate = acquire.NewGate()
	rt.ctrl, err = motion.NewController(motion.ControllerConfig{
		StepInterval: config.Millis(s.Timing.StepIntervalMs),
		IdleInterval: config.Millis(s.Timing.IdleIntervalMs),
	}, sw, rt.gate, motion.NewStability())
	if err != nil {
		return rt, err
	}

	// --------------------
	// Acquisition
	// --------------------

	rt.capture = queue.NewFIFO[acquire.Capture]()
	rt.records = queue.NewFIFO[acquire.Record]()
	rt.datagram = queue.NewLatest[[]frame.Word](s.Queues.DatagramDepth)
	rt.stats = &acquire.Stats{}

	rt.poller, err = acquire.New(acquire.Config{
		BatchWords:   s.Sensor.BatchWords,
		Interval:     config.Millis(s.Timing.PollIntervalMs),
		IdleInterval: config.Millis(s.Timing.IdleIntervalMs),
	}, rt.link, rt.gate, rt.stats, rt.capture, rt.datagram)
	if err != nil {
		return rt, err
	}

	recordSinks := []acquire.RecordSink{rt.records}
	if s.LiveFeed.Listen != "" {
		if rt.feed, err = net.Listen("tcp", s.LiveFeed.Listen); err != nil {
			return rt, fmt.Errorf("scanner: live feed listen: %w", err)
		}
		rt.hub = livefeed.NewHub(geometry.DefaultMapper(), s.LiveFeed.Buffer)
		recordSinks = append(recordSinks, rt.hub)
	}

	rt.stamper, err = acquire.NewStamper(rt.ctrl.Stability(), rt.ctrl, rt.capture,
		config.Millis(s.Timing.StampTimeoutMs), rt.stats, recordSinks...)
	if err != nil {
		return rt, err
	}

	// --------------------
	// Delivery
	// --------------------

	d := s.Destination
	rt.reliable, err = sender.NewReliable(sender.ReliableConfig{
		Addr:         hostPort(d.Host, d.DataPort),
		DialTimeout:  config.Millis(s.Timing.WriteTimeoutMs),
		WriteTimeout: config.Millis(s.Timing.WriteTimeoutMs),
		Backoff:      config.Millis(s.Timing.ReconnectBackoffMs),
	}, rt.records)
	if err != nil {
		return rt, err
	}
	rt.bestEffort, err = sender.NewBestEffort(sender.BestEffortConfig{
		Addr:    hostPort(d.Host, d.DatagramPort),
		Backoff: config.Millis(s.Timing.ReconnectBackoffMs),
	}, rt.datagram)
	if err != nil {
		return rt, err
	}

	// --------------------
	// Control
	// --------------------

	disp, err := control.NewDispatcher(rt.gate, rt.ctrl, config.Millis(s.Timing.MoveTimeoutMs),
		rt.capture, rt.records, rt.datagram)
	if err != nil {
		return rt, err
	}
	if rt.ctlLn, err = net.Listen("tcp", hostPort(d.ControlBind, d.ControlPort)); err != nil {
		return rt, fmt.Errorf("scanner: control listen: %w", err)
	}
	rt.server, err = control.NewServer(control.ServerConfig{
		IdleFlush:    config.Millis(s.Timing.IdleFlushMs),
		WriteTimeout: config.Millis(s.Timing.WriteTimeoutMs),
	}, rt.ctlLn, disp)
	if err != nil {
		return rt, err
	}

	// --------------------
	// Status
	// --------------------

	rt.reporter, err = status.NewReporter(config.Millis(s.Status.IntervalMs), rt.Status)
	if err != nil {
		return rt, err
	}
	sinks, closeSinks, err := buildStatusSinks(s)
	if err != nil {
		return rt, err
	}
	rt.closeSinks = closeSinks
	for _, ns := range sinks {
		rt.reporter.Add(ns.name, ns.sink)
	}

	return rt, nil
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ID identifies this run in log lines.
func (rt *Runtime) ID() string { return rt.id }

// ControlAddr is the address the command server listens on.
func (rt *Runtime) ControlAddr() net.Addr { return rt.ctlLn.Addr() }

// FeedAddr is the live feed address, nil when the feed is disabled.
func (rt *Runtime) FeedAddr() net.Addr {
	if rt.feed == nil {
		return nil
	}
	return rt.feed.Addr()
}

// Status assembles the snapshot published to the status sinks.
func (rt *Runtime) Status() status.Snapshot {
	snap := rt.ctrl.Snapshot()
	st := rt.stats.Snapshot()
	return status.Snapshot{
		State:        status.StateCode(snap.State),
		Enabled:      rt.gate.Enabled(),
		Theta:        snap.Position.Theta,
		R:            snap.Position.R,
		Z:            snap.Position.Z,
		Counter:      snap.Counter,
		ParityErrors: st.ParityErrors,
		StampMisses:  st.StampMisses,
		ShortReads:   st.ShortReads,
		Sent:         rt.reliable.Stats().Sent.Load(),
	}
}

// Run starts every worker and blocks until ctx is cancelled. Workers
// get ShutdownTimeout to return before the hardware is released anyway.
func (rt *Runtime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	monitoring.Logf("[scanner] run %s starting (name=%s sensor=%s actuator=%s)",
		rt.id, rt.cfg.Name, rt.cfg.Sensor.Kind, rt.cfg.Actuator.Kind)

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
			monitoring.Logf("[scanner] %s stopped", name)
		}()
	}

	start("controller", rt.ctrl.Run)
	start("poller", rt.poller.Run)
	start("stamper", rt.stamper.Run)
	start("reliable sender", rt.reliable.Run)
	start("best-effort sender", rt.bestEffort.Run)
	start("command server", func(ctx context.Context) {
		if err := rt.server.Serve(ctx); err != nil && !errors.Is(err, control.ErrServerClosed) {
			monitoring.Logf("[scanner] command server: %v", err)
		}
	})
	if rt.reporter.Len() > 0 {
		start("status reporter", rt.reporter.Run)
	}
	start("stats", rt.logStats)
	if rt.hub != nil {
		start("live feed", func(ctx context.Context) {
			if err := rt.hub.Serve(ctx, rt.feed); err != nil {
				monitoring.Logf("[scanner] live feed: %v", err)
			}
		})
	}

	<-ctx.Done()
	monitoring.Logf("[scanner] run %s shutting down", rt.id)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timeout := config.Millis(rt.cfg.Timing.ShutdownTimeoutMs)
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		monitoring.Logf("[scanner] workers still running after %s, releasing hardware", timeout)
	}

	return rt.Close()
}

// StatsInterval is how often the pipeline counters are logged.
const StatsInterval = 10 * time.Second

func (rt *Runtime) logStats(ctx context.Context) {
	t := time.NewTicker(StatsInterval)
	defer t.Stop()

	var last acquire.StatsSnapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		st := rt.stats.Snapshot()
		if st == last {
			continue
		}
		last = st
		rs := rt.reliable.Stats()
		bs := rt.bestEffort.Stats()
		monitoring.Logf("[scanner] batches=%d words=%d parity=%d short=%d stamped=%d misses=%d stale=%d sent=%d/%d datagrams=%d/%d dropped=%d",
			st.Batches, st.Words, st.ParityErrors, st.ShortReads, st.Stamped, st.StampMisses, st.Stale,
			rs.Sent.Load(), rs.Failed.Load(), bs.Sent.Load(), bs.Failed.Load(), rt.datagram.Dropped())
	}
}

// Close stops readout and releases the hardware. Safe to call more than once.
func (rt *Runtime) Close() error {
	rt.cleanup.Do(func() {
		var errs []error
		if rt.link != nil {
			if err := sensor.Shutdown(rt.link); err != nil {
				errs = append(errs, err)
			}
		}
		if rt.act != nil {
			if err := rt.act.Close(); err != nil {
				errs = append(errs, fmt.Errorf("scanner: actuator close: %w", err))
			}
		}
		if rt.link != nil {
			if err := rt.link.Close(); err != nil {
				errs = append(errs, fmt.Errorf("scanner: sensor close: %w", err))
			}
		}
		// listeners are normally closed by their servers; these cover
		// a runtime that never ran
		if rt.ctlLn != nil {
			_ = rt.ctlLn.Close()
		}
		if rt.feed != nil {
			_ = rt.feed.Close()
		}
		if err := rt.closeSinks(); err != nil {
			errs = append(errs, fmt.Errorf("scanner: status sinks: %w", err))
		}
		rt.cleanupErr = errors.Join(errs...)
	})
	return rt.cleanupErr
}
