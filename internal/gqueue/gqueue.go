// Package gqueue provides an unbounded, mutex-protected FIFO
// with a readiness signal suitable for use in a select loop.
package gqueue

import "sync"

// Queue is an unbounded FIFO safe for concurrent use.
//
// Producers call [*Queue.Push] and never block.
// A single consumer selects on [*Queue.Ready]
// and then calls [*Queue.Drain] to take everything queued.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T

	// 1-buffered so that any number of pushes between drains
	// collapse into a single wakeup.
	ready chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
	}
}

// Push appends v to the queue and signals readiness.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
		// Already signaled.
	}
}

// Ready returns a channel that receives a value
// after one or more pushes since the last receive.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Drain removes and returns every queued item in push order.
// It returns nil if the queue is empty.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
