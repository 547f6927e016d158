// internal/queue/latest.go
package queue

import (
	"context"
	"sync"
	"time"
)

// DefaultDepth bounds the latest-wins queue.
const DefaultDepth = 1000

// Latest is a bounded queue for loss-tolerant data. Push never blocks:
// when full the oldest item is evicted. Pop returns the most recent item.
type Latest[T any] struct {
	mu      sync.Mutex
	depth   int
	items   []T
	dropped uint64
	ready   chan struct{}
}

func NewLatest[T any](depth int) *Latest[T] {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Latest[T]{depth: depth, ready: make(chan struct{}, 1)}
}

func (q *Latest[T]) Push(v T) {
	q.mu.Lock()
	if len(q.items) >= q.depth {
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	notify(q.ready)
}

// Pop returns the newest item, waiting up to timeout (or until ctx ends).
func (q *Latest[T]) Pop(ctx context.Context, timeout time.Duration) (T, bool) {
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

func (q *Latest[T]) tryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	n := len(q.items)
	if n == 0 {
		return zero, false
	}
	v := q.items[n-1]
	q.items[n-1] = zero
	q.items = q.items[:n-1]
	if n > 1 {
		notify(q.ready)
	}
	return v, true
}

func (q *Latest[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped counts items evicted by overflow.
func (q *Latest[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Latest[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}
