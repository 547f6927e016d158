// internal/status/reporter_test.go
package status

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tamzrod/magscan/internal/motion"
)

type countingSink struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (c *countingSink) WriteStatus(s Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, s)
	return c.err
}

func (c *countingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

func TestReporter_FansOutAndSurvivesSinkErrors(t *testing.T) {
	r, err := NewReporter(5*time.Millisecond, func() Snapshot {
		return Snapshot{State: StateCode(motion.Sweeping), Counter: 4}
	})
	if err != nil {
		t.Fatalf("NewReporter err=%v", err)
	}

	bad := &countingSink{err: errors.New("down")}
	good := &countingSink{}
	r.Add("bad", bad)
	r.Add("good", good)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for good.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("good sink starved by failing sink")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if bad.count() < 3 {
		t.Fatalf("failing sink should still be called every tick")
	}
	if good.snaps[0].State != StateSweeping {
		t.Fatalf("state=%d want %d", good.snaps[0].State, StateSweeping)
	}
}

func TestStateCode(t *testing.T) {
	cases := map[motion.State]uint16{
		motion.Idle:          StateIdle,
		motion.Sweeping:      StateSweeping,
		motion.Homing:        StateHoming,
		motion.SeekingTarget: StateSeeking,
	}
	for in, want := range cases {
		if got := StateCode(in); got != want {
			t.Fatalf("StateCode(%s)=%d want %d", in, got, want)
		}
	}
}
