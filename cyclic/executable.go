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

package cyclic

import (
	"fmt"
	"sync"
	"time"

	"github.com/hemera/taskexec/task"
)

// Handle is the façade returned for a cyclic submission: the generic
// task.Handle (Cancel/Await/AwaitTimeout, covering the NEW -> CANCELED path
// before the first cycle ever runs) plus Terminate, the cyclic-specific
// best-effort stop request.
type Handle interface {
	task.Handle

	// Terminate requests that no further cycles start after the one currently
	// running (if any) finishes. It is best-effort: the in-progress cycle
	// always runs to completion and Cleanup runs exactly once, unless the
	// handle was cancelled before its first cycle, in which case it never runs.
	Terminate()
}

// Executable binds a Task to its handle and drives the rate-regulated loop.
// It reuses task.Base for the single outer NEW -> RUNNING
// transition (so a cyclic submission can still be cancelled before its first
// cycle) and adds its own terminated flag plus wait condition for the
// cancellable inter-cycle sleep.
type Executable struct {
	task.Base

	cfg    Config
	task   Task
	router task.ExceptionRouter

	waitMu     sync.Mutex
	waitCond   *sync.Cond
	terminated bool
}

var (
	_ task.Runnable = (*Executable)(nil)
	_ Handle        = (*Executable)(nil)
)

// New creates the handle+executable pair for a cyclic Task.
func New(t Task, cfg Config, router task.ExceptionRouter) *Executable {
	e := &Executable{
		Base:   task.NewBase(),
		cfg:    cfg,
		task:   t,
		router: router,
	}
	e.waitCond = sync.NewCond(&e.waitMu)
	return e
}

// Execute implements task.Runnable. It performs the RUNNING transition once
// (via task.Base.RunOnce) and then iterates cycles until terminated, the
// declared cycle count is reached, or the task returns false.
func (e *Executable) Execute() {
	e.RunOnce(e.loop, nil)
}

func (e *Executable) loop() {
	budget := e.cfg.CycleTime
	count := 0

	for !e.isTerminated() {
		start := time.Now()

		cont := e.runCycle()
		count++

		if !cont {
			e.requestTerminate()
		}

		if e.isTerminated() || (e.cfg.Count > 0 && count >= e.cfg.Count) {
			break
		}

		if remaining := budget - time.Since(start); remaining > 0 {
			e.sleep(remaining)
		}
	}

	e.task.Cleanup()
}

// runCycle invokes exactly one cycle of the task, routing both thrown panics
// and returned errors to the exception router. A panic or an error does not,
// by itself, stop the loop -- only an explicit `false` return does.
func (e *Executable) runCycle() (cont bool) {
	cont = true

	defer func() {
		if r := recover(); r != nil {
			e.router.Handle(panicErr(r))
		}
	}()

	c, err := e.task.Execute()
	if err != nil {
		e.router.Handle(err)
		return true
	}
	return c
}

func (e *Executable) isTerminated() bool {
	e.waitMu.Lock()
	defer e.waitMu.Unlock()
	return e.terminated
}

func (e *Executable) requestTerminate() {
	e.waitMu.Lock()
	e.terminated = true
	e.waitCond.Broadcast()
	e.waitMu.Unlock()
}

// Terminate implements Handle. It sets the terminated flag, invokes the
// task's TerminateSignalled hook so an in-flight Execute call can observe the
// request, and then wakes anything blocked in the inter-cycle sleep -- in
// that order.
func (e *Executable) Terminate() {
	e.waitMu.Lock()
	e.terminated = true
	e.waitMu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				e.router.Handle(panicErr(r))
			}
		}()
		e.task.TerminateSignalled()
	}()

	e.waitMu.Lock()
	e.waitCond.Broadcast()
	e.waitMu.Unlock()
}

// sleep blocks for at most d, returning early if Terminate is called. A plain
// time.Sleep would make Terminate unresponsive during the inter-cycle wait.
func (e *Executable) sleep(d time.Duration) {
	e.waitMu.Lock()
	defer e.waitMu.Unlock()

	deadline := time.Now().Add(d)
	for !e.terminated {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		waitWithTimeout(e.waitCond, &e.waitMu, remaining)
	}
}

func waitWithTimeout(cond *sync.Cond, mu *sync.Mutex, timeout time.Duration) {
	timer := time.AfterFunc(timeout, func() {
		mu.Lock()
		cond.Broadcast()
		mu.Unlock()
	})
	defer timer.Stop()
	cond.Wait()
}

func panicErr(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("taskexec: cyclic task panicked: %w", err)
	}
	return fmt.Errorf("taskexec: cyclic task panicked: %v", r)
}
