/**
 * Copyright (c) 2024, The Hemera Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package deque implements the bounded, concurrent, double-ended queue that
// backs each assist worker's local run queue: submitters push onto its head
// and the owning worker pops from its head, while any number of peer workers
// may poll its tail to steal work. It is a ring buffer guarded by a single mutex --
// correct under contention from many peers, at the cost of serializing head
// and tail access against each other, which is an acceptable trade for a
// per-worker queue that is rarely contended on more than one side at once.
package deque

import "sync"

// Deque is a bounded double-ended queue of runnable work. The zero value is
// not usable; construct with New.
type Deque[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	data     []T
	head     int
	length   int
	capacity int
}

// New creates a Deque with room for capacity elements. capacity must be > 0.
func New[T any](capacity int) *Deque[T] {
	if capacity <= 0 {
		panic("deque: capacity must be positive")
	}
	d := &Deque[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
	d.notFull = sync.NewCond(&d.mu)
	return d
}

// TryPushHead inserts v at the head without blocking. It returns false if the
// deque is at capacity.
func (d *Deque[T]) TryPushHead(v T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tryPushHeadLocked(v)
}

func (d *Deque[T]) tryPushHeadLocked(v T) bool {
	if d.length == d.capacity {
		return false
	}
	d.head = (d.head - 1 + d.capacity) % d.capacity
	d.data[d.head] = v
	d.length++
	return true
}

// PushHead inserts v at the head, blocking until a slot frees up if the
// deque is at capacity. This is the fallback path after a failed
// TryPushHead has already triggered a capacity-reached notification.
func (d *Deque[T]) PushHead(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.length == d.capacity {
		d.notFull.Wait()
	}
	d.tryPushHeadLocked(v)
}

// PopHead removes and returns the element at the head. Only the owning
// worker should call this. ok is false if the deque is empty.
func (d *Deque[T]) PopHead() (v T, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.length == 0 {
		return v, false
	}
	v = d.data[d.head]
	var zero T
	d.data[d.head] = zero
	d.head = (d.head + 1) % d.capacity
	d.length--
	d.notFull.Signal()
	return v, true
}

// PollTail removes and returns the element at the tail without blocking.
// Idle peer workers call this to steal work from another worker's deque. ok
// is false if the deque is empty.
func (d *Deque[T]) PollTail() (v T, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.length == 0 {
		return v, false
	}
	idx := (d.head + d.length - 1) % d.capacity
	v = d.data[idx]
	var zero T
	d.data[idx] = zero
	d.length--
	d.notFull.Signal()
	return v, true
}

// Len returns the current number of queued elements.
func (d *Deque[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.length
}

// Empty returns true if the deque currently holds no elements.
func (d *Deque[T]) Empty() bool {
	return d.Len() == 0
}

// Capacity returns the fixed capacity this deque was constructed with.
func (d *Deque[T]) Capacity() int {
	return d.capacity
}
