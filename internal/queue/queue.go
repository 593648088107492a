// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package queue implements the unbounded FIFO queues used by the stanza
// stream broker.
package queue

import (
	"sync"
)

// A Deque is an unbounded FIFO queue that is safe for use by any number of
// producers and a single consumer.
// A buffered readiness channel stands in for the consumer's blocking wait so
// that the consumer can select over several queues and a timer at once.
type Deque[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

// New allocates a new, empty deque.
func New[T any]() *Deque[T] {
	return &Deque[T]{ready: make(chan struct{}, 1)}
}

// Put appends v at the tail of the queue. It never blocks.
func (d *Deque[T]) Put(v T) {
	d.mu.Lock()
	d.items = append(d.items, v)
	d.mu.Unlock()
	d.signal()
}

// PutFront inserts v ahead of every item already in the queue, making it the
// next item returned by TryPop.
// It is used to restore an item that was pulled from the queue but never
// processed and to requeue unacknowledged stanzas ahead of new traffic when a
// stream management session is resumed.
func (d *Deque[T]) PutFront(v T) {
	d.mu.Lock()
	d.items = append(d.items, v)
	copy(d.items[1:], d.items)
	d.items[0] = v
	d.mu.Unlock()
	d.signal()
}

// Ready returns a channel that receives a value when the queue may have an
// item available.
// A receipt is a hint, not a guarantee: consumers must confirm with TryPop
// and treat an empty result as a spurious wakeup.
func (d *Deque[T]) Ready() <-chan struct{} {
	return d.ready
}

// TryPop removes and returns the item at the head of the queue, if any.
func (d *Deque[T]) TryPop() (v T, ok bool) {
	d.mu.Lock()
	if len(d.items) == 0 {
		d.mu.Unlock()
		return v, false
	}
	var zero T
	v = d.items[0]
	d.items[0] = zero
	d.items = d.items[1:]
	remaining := len(d.items)
	d.mu.Unlock()
	if remaining > 0 {
		d.signal()
	}
	return v, true
}

// Len returns the number of items currently in the queue.
func (d *Deque[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

func (d *Deque[T]) signal() {
	select {
	case d.ready <- struct{}{}:
	default:
	}
}
