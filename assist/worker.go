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

package assist

import (
	"fmt"
	"sync"
	"time"

	"github.com/hemera/taskexec/cyclic"
	"github.com/hemera/taskexec/deque"
	"github.com/hemera/taskexec/task"
	"github.com/hemera/taskexec/worker"
)

// queuedItem pairs a runnable with the time it was handed to a worker, so
// the time spent waiting in the deque can be observed once execution starts.
type queuedItem struct {
	item        task.Runnable
	submittedAt time.Time
}

// Worker owns a bounded double-ended queue of executables. Submitters insert
// at the head and the worker's own goroutine pops from the head; peer
// workers only poll the tail to steal work while idle.
type Worker struct {
	worker.Base

	deque       *deque.Deque[queuedItem]
	idleMu      sync.Mutex
	idleCond    *sync.Cond
	idleTimeout time.Duration
	service     *Service
}

func newWorker(service *Service, cfg Config) *Worker {
	w := &Worker{
		Base:        worker.NewBase(cfg.Router),
		deque:       deque.New[queuedItem](cfg.BufferCapacity),
		idleTimeout: cfg.IdleTimeout,
		service:     service,
	}
	w.idleCond = sync.NewCond(&w.idleMu)
	return w
}

// Start launches the worker's run loop on its own goroutine.
func (w *Worker) Start() {
	w.service.stats.RecordWorkerCreated()
	go w.run()
}

func (w *Worker) run() {
	for {
		w.drain()
		for w.service.globalAssist() {
		}

		w.idleMu.Lock()
		if w.TerminateRequested() {
			w.idleMu.Unlock()
			break
		}
		if !w.deque.Empty() {
			w.idleMu.Unlock()
			continue
		}
		waitWithTimeout(w.idleCond, &w.idleMu, w.idleTimeout)
		w.idleMu.Unlock()
	}
	w.service.stats.RecordWorkerKilled()
	w.MarkTerminated()
}

// drain runs every executable currently queued at this worker's head, in
// head order, until the deque is empty.
func (w *Worker) drain() {
	for {
		qi, ok := w.deque.PopHead()
		if !ok {
			return
		}
		w.runExecutable(qi)
	}
}

// peerAssist is the non-blocking steal operation a service-wide sweep
// performs against this worker on behalf of an idle peer. It returns true
// iff a task was popped and run.
func (w *Worker) peerAssist() bool {
	qi, ok := w.deque.PollTail()
	if !ok {
		return false
	}
	w.runExecutable(qi)
	return true
}

func (w *Worker) runExecutable(qi queuedItem) {
	w.service.stats.RecordDispatched(time.Since(qi.submittedAt).Seconds())

	defer func() {
		if r := recover(); r != nil {
			w.service.stats.RecordPanicked()
			w.Router.Handle(fmt.Errorf("taskexec: assist worker loop panicked: %v", r))
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

// assign wraps the submitter-facing insertion contract: a non-blocking
// insert at the head, falling back to a blocking insert (after notifying the
// capacity-reached listener) if the deque is already full, followed by
// waking the worker's idle wait.
func (w *Worker) assign(item task.Runnable, listener *task.RateLimitedListener) {
	qi := queuedItem{item: item, submittedAt: time.Now()}
	if !w.deque.TryPushHead(qi) {
		listener.NotifyCapacityReached()
		w.deque.PushHead(qi)
	}

	w.idleMu.Lock()
	w.idleCond.Broadcast()
	w.idleMu.Unlock()
}

// RequestTerminate overrides worker.Base's to additionally wake this worker
// if it is parked in its idle wait, so shutdown does not have to wait out a
// full idle timeout.
func (w *Worker) RequestTerminate() {
	w.Base.RequestTerminate()
	w.idleMu.Lock()
	w.idleCond.Broadcast()
	w.idleMu.Unlock()
}

// QueueLength reports the current number of queued executables, used for the
// service's average-queue-length statistic.
func (w *Worker) QueueLength() int {
	return w.deque.Len()
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
