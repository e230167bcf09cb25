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

package scale

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hemera/taskexec/cyclic"
	"github.com/hemera/taskexec/task"
	"github.com/hemera/taskexec/worker"
)

// queuedItem pairs a runnable with the time it was assigned to a worker, so
// the time spent waiting for a worker can be observed once execution starts.
type queuedItem struct {
	item        task.Runnable
	submittedAt time.Time
}

// Worker holds at most one executable at a time in a single atomic slot.
type Worker struct {
	worker.Base

	slot atomic.Pointer[queuedItem]

	waitMu      sync.Mutex
	waitCond    *sync.Cond
	onDemand    bool
	idleTimeout time.Duration
	service     *Service
}

func newWorker(service *Service, router task.ExceptionRouter, onDemand bool, idleTimeout time.Duration) *Worker {
	w := &Worker{
		Base:        worker.NewBase(router),
		onDemand:    onDemand,
		idleTimeout: idleTimeout,
		service:     service,
	}
	w.waitCond = sync.NewCond(&w.waitMu)
	return w
}

// Start launches the worker's run loop on its own goroutine.
func (w *Worker) Start() {
	w.service.stats.RecordWorkerCreated()
	go w.run()
}

func (w *Worker) run() {
	for {
		if qi := w.slot.Swap(nil); qi != nil {
			w.runExecutable(*qi)
			w.service.recycle(w)
		}

		w.waitMu.Lock()
		if w.TerminateRequested() {
			w.waitMu.Unlock()
			break
		}
		if w.slot.Load() != nil {
			w.waitMu.Unlock()
			continue
		}

		timedOut := false
		if w.onDemand {
			waitWithTimeout(w.waitCond, &w.waitMu, w.idleTimeout)
			timedOut = w.slot.Load() == nil && !w.TerminateRequested()
		} else {
			w.waitCond.Wait()
		}
		w.waitMu.Unlock()

		if timedOut {
			// Only self-terminate if the service confirms this worker was not
			// meanwhile handed a new task by a racing submitter.
			if w.service.remove(w) {
				w.RequestTerminate()
			}
		}
	}
	w.service.stats.RecordWorkerKilled()
	w.MarkTerminated()
}

func (w *Worker) runExecutable(qi queuedItem) {
	w.service.stats.RecordDispatched(time.Since(qi.submittedAt).Seconds())

	defer func() {
		if r := recover(); r != nil {
			w.service.stats.RecordPanicked()
			w.Router.Handle(fmt.Errorf("taskexec: scale worker loop panicked: %v", r))
		}
	}()

	if c, ok := qi.item.(*cyclic.Executable); ok {
		w.SetCurrentCyclic(c)
		defer w.SetCurrentCyclic(nil)
	}

	start := time.Now()
	qi.item.Execute()

	if c, ok := qi.item.(interface{ Canceled() bool }); ok && c.Canceled() {
		w.service.stats.RecordCancelled()
		return
	}
	w.service.stats.RecordCompleted(time.Since(start).Seconds())
}

// assign compare-and-sets the slot from empty to item. false means the
// worker was not actually free -- an invalid-state condition, since a worker
// must only ever be handed to one submitter while idle.
func (w *Worker) assign(item task.Runnable) bool {
	qi := &queuedItem{item: item, submittedAt: time.Now()}
	if !w.slot.CompareAndSwap(nil, qi) {
		return false
	}
	w.waitMu.Lock()
	w.waitCond.Broadcast()
	w.waitMu.Unlock()
	return true
}

// RequestTerminate overrides worker.Base's to additionally wake this worker
// out of its wait, whether bounded (on-demand) or unbounded (min pool).
func (w *Worker) RequestTerminate() {
	w.Base.RequestTerminate()
	w.waitMu.Lock()
	w.waitCond.Broadcast()
	w.waitMu.Unlock()
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
