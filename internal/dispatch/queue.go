package dispatch

import (
	"context"
	"sync"
)

type entry[T comparable] struct {
	value T
	stop  bool
}

// SetQueue is a FIFO queue that ignores values already waiting in it. A
// stop sentinel ends consumption once everything queued before it is taken.
type SetQueue[T comparable] struct {
	mu      sync.Mutex
	items   []entry[T]
	set     map[T]struct{}
	stopped bool
	ready   chan struct{}
}

// NewSetQueue creates an empty queue.
func NewSetQueue[T comparable]() *SetQueue[T] {
	return &SetQueue[T]{
		set:   make(map[T]struct{}),
		ready: make(chan struct{}, 1),
	}
}

// Add enqueues v unless it is already queued or the queue is stopped. It
// reports whether the queue changed.
func (q *SetQueue[T]) Add(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	if _, dup := q.set[v]; dup {
		return false
	}
	q.set[v] = struct{}{}
	q.items = append(q.items, entry[T]{value: v})
	q.signal()
	return true
}

// Stop enqueues the stop sentinel. Later adds are rejected.
func (q *SetQueue[T]) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}
	q.stopped = true
	q.items = append(q.items, entry[T]{stop: true})
	q.signal()
}

// Take blocks until a value is available. ok is false once the stop sentinel
// is reached or ctx is done.
func (q *SetQueue[T]) Take(ctx context.Context) (v T, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			if e.stop {
				// The sentinel stays queued for any other consumer.
				q.signal()
				q.mu.Unlock()
				return v, false
			}
			q.items[0] = entry[T]{}
			q.items = q.items[1:]
			delete(q.set, e.value)
			if len(q.items) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return e.value, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return v, false
		}
	}
}

// Contains reports whether v is waiting in the queue.
func (q *SetQueue[T]) Contains(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.set[v]
	return ok
}

// Len returns the number of queued values, excluding the sentinel.
func (q *SetQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.set)
}

// signal wakes a waiting consumer. Callers hold q.mu.
func (q *SetQueue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
