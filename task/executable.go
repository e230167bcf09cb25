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

package task

import (
	"fmt"
	"sync"
	"time"
)

// Runnable is implemented by every executable a worker can pull off a queue
// and run: EventExecutable, ResultExecutable[R] and cyclic.Executable all
// satisfy it.
type Runnable interface {
	// Execute drives this executable's run protocol exactly once. It must only
	// be called by the worker thread that owns the executable.
	Execute()
}

// Handle is the façade every submitter is given back from Submit. It exposes
// only cancellation and completion-waiting, never internal worker state.
type Handle interface {
	// Cancel attempts to cancel the task before it starts running. It returns
	// true only if the task had not yet started and is now guaranteed never to
	// run.
	Cancel() bool

	// Await blocks until the task completes or is cancelled. It returns true
	// iff the task completed (ran to the end of its body, successfully or
	// not).
	Await() bool

	// AwaitTimeout is like Await but gives up after timeout elapses. A
	// timeout <= 0 degenerates to an unbounded wait.
	AwaitTimeout(timeout time.Duration) bool
}

// ResultHandle is the Handle for a ResultTask[R]; it additionally allows the
// submitter to retrieve the value the task produced.
type ResultHandle[R any] interface {
	Handle

	// GetAndWait awaits completion and returns the task's result. The second
	// return value is false (and R is the zero value) if the task was
	// cancelled.
	GetAndWait() (R, bool)

	// GetAndWaitTimeout is like GetAndWait but bounded by timeout.
	GetAndWaitTimeout(timeout time.Duration) (R, bool)
}

// Base implements the dual-lock Executable state machine shared by every
// dispatch discipline: NEW -> RUNNING -> COMPLETED, or NEW -> CANCELED. All
// three are terminal.
//
// execMu serializes "am I allowed to start" decisions: Execute and Cancel
// race for it. completeMu (together with cond) serializes the completion
// announcement so that Await never misses a broadcast and setResult/complete
// are observed atomically by waiters.
type Base struct {
	execMu     sync.Mutex
	completeMu sync.Mutex
	cond       *sync.Cond

	canceled  bool
	completed bool
}

func NewBase() Base {
	c := Base{}
	c.cond = sync.NewCond(&c.completeMu)
	return c
}

// Cancel implements Handle.
func (c *Base) Cancel() bool {
	if !c.execMu.TryLock() {
		// Execution already in progress (or another cancel/execute holds the
		// lock momentarily); cancellation is only allowed before RUNNING.
		return false
	}
	defer c.execMu.Unlock()

	c.completeMu.Lock()
	defer c.completeMu.Unlock()

	if c.completed || c.canceled {
		return false
	}
	c.canceled = true
	c.cond.Broadcast()
	return true
}

// RunOnce executes body exactly once, honoring a preceding cancellation.
// setResult (if non-nil) runs inside the same completeMu critical section
// that flips completed, so a result becomes visible to awaiters atomically
// with completion.
func (c *Base) RunOnce(body func(), setResult func()) {
	c.execMu.Lock()
	defer c.execMu.Unlock()

	if c.canceled {
		return
	}

	body()

	c.completeMu.Lock()
	if setResult != nil {
		setResult()
	}
	c.completed = true
	c.cond.Broadcast()
	c.completeMu.Unlock()
}

// Canceled reports whether the task was cancelled before it ever ran.
func (c *Base) Canceled() bool {
	c.completeMu.Lock()
	defer c.completeMu.Unlock()
	return c.canceled
}

// Await implements Handle.
func (c *Base) Await() bool { return c.awaitTimeout(0) }

// AwaitTimeout implements Handle.
func (c *Base) AwaitTimeout(timeout time.Duration) bool { return c.awaitTimeout(timeout) }

// awaitTimeout is the shared implementation of Await/AwaitTimeout.
func (c *Base) awaitTimeout(timeout time.Duration) bool {
	c.completeMu.Lock()
	defer c.completeMu.Unlock()

	if c.completed || c.canceled {
		return c.completed
	}

	if timeout <= 0 {
		for !c.completed && !c.canceled {
			c.cond.Wait()
		}
		return c.completed
	}

	deadline := time.Now().Add(timeout)
	for !c.completed && !c.canceled {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return c.completed
		}
		waitWithTimeout(c.cond, &c.completeMu, remaining)
	}
	return c.completed
}

// waitWithTimeout blocks on cond (whose lock must already be held by the
// caller) until it is signalled or timeout elapses, whichever is first. It
// may return early (spuriously); callers must re-check their predicate.
func waitWithTimeout(cond *sync.Cond, mu *sync.Mutex, timeout time.Duration) {
	timer := time.AfterFunc(timeout, func() {
		mu.Lock()
		cond.Broadcast()
		mu.Unlock()
	})
	defer timer.Stop()
	cond.Wait()
}

func panicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("taskexec: task panicked: %w", err)
	}
	return fmt.Errorf("taskexec: task panicked: %v", r)
}

// recoverAndRoute is installed as a defer in every Execute method; it turns a
// panic inside a task body into a call to the router instead of crashing the
// worker goroutine.
func recoverAndRoute(router ExceptionRouter) {
	if r := recover(); r != nil {
		router.Handle(panicToError(r))
	}
}

//===----------------------------------------------------------------------===
// EventExecutable
//===----------------------------------------------------------------------===

// EventExecutable binds an EventTask to its handle and drives its execute
// protocol.
type EventExecutable struct {
	Base
	task   EventTask
	router ExceptionRouter
}

var (
	_ Runnable = (*EventExecutable)(nil)
	_ Handle   = (*EventExecutable)(nil)
)

// NewEventExecutable creates the handle+executable pair for an EventTask.
func NewEventExecutable(t EventTask, router ExceptionRouter) *EventExecutable {
	return &EventExecutable{
		Base:   NewBase(),
		task:   t,
		router: router,
	}
}

// Execute implements Runnable.
func (e *EventExecutable) Execute() {
	e.RunOnce(func() {
		defer recoverAndRoute(e.router)
		if err := e.task.Run(); err != nil {
			e.router.Handle(err)
		}
	}, nil)
}

//===----------------------------------------------------------------------===
// ResultExecutable
//===----------------------------------------------------------------------===

// ResultExecutable binds a ResultTask[R] to its handle.
type ResultExecutable[R any] struct {
	Base
	task   ResultTask[R]
	router ExceptionRouter
	result R
}

// NewResultExecutable creates the handle+executable pair for a ResultTask[R].
func NewResultExecutable[R any](t ResultTask[R], router ExceptionRouter) *ResultExecutable[R] {
	return &ResultExecutable[R]{
		Base:   NewBase(),
		task:   t,
		router: router,
	}
}

// Execute implements Runnable.
func (e *ResultExecutable[R]) Execute() {
	var result R
	var ran bool

	e.RunOnce(func() {
		defer recoverAndRoute(e.router)
		r, err := e.task.Run()
		if err != nil {
			e.router.Handle(err)
			return
		}
		result, ran = r, true
	}, func() {
		if ran {
			e.result = result
		}
	})
}

// GetAndWait implements ResultHandle.
func (e *ResultExecutable[R]) GetAndWait() (R, bool) {
	return e.GetAndWaitTimeout(0)
}

// GetAndWaitTimeout implements ResultHandle.
func (e *ResultExecutable[R]) GetAndWaitTimeout(timeout time.Duration) (R, bool) {
	if !e.AwaitTimeout(timeout) {
		var zero R
		return zero, false
	}
	return e.result, true
}

var _ ResultHandle[int] = (*ResultExecutable[int])(nil)
