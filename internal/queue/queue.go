// Package queue is a bounded FIFO safe for concurrent use.
package queue

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrQueueFull = errors.New("queue full")
	ErrDuplicate = errors.New("value already queued")
)

// Queue is a circular buffer of length n holding at most n-1 values; one
// cell stays empty so that top == bottom means empty.
type Queue[T comparable] struct {
	mu     sync.Mutex
	buf    []T
	top    int
	bottom int
}

// New returns an empty queue over a buffer of the given length (at least 2).
func New[T comparable](length int) *Queue[T] {
	if length < 2 {
		panic(fmt.Sprintf("queue length must be at least 2, got %d", length))
	}
	return &Queue[T]{buf: make([]T, length)}
}

// Push appends v. It fails with ErrQueueFull when no cell is left and with
// ErrDuplicate when v is already queued.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.full() {
		return ErrQueueFull
	}
	for i := q.top; i != q.bottom; i = q.next(i) {
		if q.buf[i] == v {
			return ErrDuplicate
		}
	}
	q.buf[q.bottom] = v
	q.bottom = q.next(q.bottom)
	return nil
}

// Pop removes the oldest value. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.top == q.bottom {
		return v, false
	}
	var zero T
	v = q.buf[q.top]
	q.buf[q.top] = zero
	q.top = q.next(q.top)
	return v, true
}

func (q *Queue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.top == q.bottom
}

func (q *Queue[T]) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.full()
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return (q.bottom - q.top + len(q.buf)) % len(q.buf)
}

// Cap returns the buffer length; the queue holds one less value.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// Snapshot copies the queued values, oldest first.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, 0, (q.bottom-q.top+len(q.buf))%len(q.buf))
	for i := q.top; i != q.bottom; i = q.next(i) {
		out = append(out, q.buf[i])
	}
	return out
}

func (q *Queue[T]) full() bool { return q.next(q.bottom) == q.top }

func (q *Queue[T]) next(i int) int { return (i + 1) % len(q.buf) }
