// internal/queue/fifo.go
package queue

import (
	"context"
	"sync"
	"time"
)

// FIFO is an unbounded, ordered queue. Push never blocks.
type FIFO[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

func NewFIFO[T any]() *FIFO[T] {
	return &FIFO[T]{ready: make(chan struct{}, 1)}
}

func (q *FIFO[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	notify(q.ready)
}

// Pop returns the oldest item, waiting up to timeout (or until ctx ends).
// A timeout <= 0 waits only on ctx.
func (q *FIFO[T]) Pop(ctx context.Context, timeout time.Duration) (T, bool) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	for {
		if v, ok := q.tryPop(); ok {
			return v, true
		}
		select {
		case <-q.ready:
		case <-timer:
			return q.tryPop()
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

func (q *FIFO[T]) tryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		notify(q.ready)
	}
	return v, true
}

func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops every queued item and returns how many were dropped.
func (q *FIFO[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
