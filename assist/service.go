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
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hemera/taskexec/cyclic"
	"github.com/hemera/taskexec/stats"
	"github.com/hemera/taskexec/task"
)

// Service is a fixed-size pool of Workers dispatched by round robin, with
// idle workers stealing queued work from busy peers.
type Service struct {
	cfg       Config
	workers   []*Worker
	counter   uint64
	router    task.ExceptionRouter
	listener  *task.RateLimitedListener
	stats     *stats.Pool
	registry  *prometheus.Registry
	activated sync.Once
}

// New allocates (but does not start) every worker in the pool. Activate
// starts them, split into two phases so that a worker never begins assisting
// peers that do not yet exist.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Router == nil {
		cfg.Router = task.DefaultExceptionRouter()
	}
	if cfg.Name == "" {
		cfg.Name = "assist"
	}

	statsPool, registry := stats.New(cfg.Name)

	s := &Service{
		cfg:      cfg,
		router:   cfg.Router,
		listener: task.NewRateLimitedListener(cfg.Listener, cfg.Router),
		stats:    statsPool,
		registry: registry,
	}

	s.workers = make([]*Worker, cfg.WorkerCount)
	for i := range s.workers {
		s.workers[i] = newWorker(s, cfg)
	}
	return s, nil
}

// Activate starts every worker's run loop. Calling Activate more than once
// has no additional effect: a second call must not spawn a second run loop
// for an already-started worker, which would give two goroutines ownership
// of the same deque.
func (s *Service) Activate() {
	s.activated.Do(func() {
		for _, w := range s.workers {
			w.Start()
		}
	})
}

// Submit assigns an EventTask to the next eligible worker.
func (s *Service) Submit(t task.EventTask) task.Handle {
	exe := task.NewEventExecutable(t, s.router)
	s.dispatch(exe)
	return exe
}

// SubmitCyclic assigns a cyclic Task to the next eligible worker.
func (s *Service) SubmitCyclic(t cyclic.Task, cycleCfg cyclic.Config) cyclic.Handle {
	exe := cyclic.New(t, cycleCfg, s.router)
	s.dispatch(exe)
	return exe
}

// SubmitResult assigns a ResultTask[R] to the next eligible worker. It is a
// package-level function, not a method, because Go methods cannot introduce
// their own type parameters.
func SubmitResult[R any](s *Service, t task.ResultTask[R]) task.ResultHandle[R] {
	exe := task.NewResultExecutable[R](t, s.router)
	s.dispatch(exe)
	return exe
}

func (s *Service) dispatch(item task.Runnable) {
	s.stats.RecordSubmitted()
	w := s.selectWorker()
	w.assign(item, s.listener)
}

// Stats returns a point-in-time snapshot of the Service's counters.
func (s *Service) Stats() stats.Snapshot {
	return s.stats.Snapshot()
}

// Registry returns the private Prometheus registry the Service's collectors
// are registered against.
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// selectWorker implements the round-robin dispatch rotation: advance past
// any worker currently occupied by a cyclic task; if a full rotation finds
// none free, notify the capacity listener and back off for the idle
// interval before retrying.
func (s *Service) selectWorker() *Worker {
	n := len(s.workers)
	for {
		start := int(atomic.AddUint64(&s.counter, 1)-1) % n
		i := start
		for {
			w := s.workers[i]
			if !w.IsExecutingCyclic() {
				return w
			}
			i = (i + 1) % n
			if i == start {
				break
			}
		}
		s.listener.NotifyCapacityReached()
		time.Sleep(s.cfg.IdleTimeout)
	}
}

// globalAssist sweeps every worker once, repeatedly stealing from each
// one's tail until it has nothing left, then yields before moving to the
// next. It returns true iff any task ran during the sweep.
func (s *Service) globalAssist() bool {
	ran := false
	for _, w := range s.workers {
		for w.peerAssist() {
			ran = true
		}
		runtime.Gosched()
	}
	return ran
}

// Shutdown requests termination of every worker without waiting for them to
// exit.
func (s *Service) Shutdown() {
	for _, w := range s.workers {
		w.RequestTerminate()
	}
}

// ShutdownAndWait requests termination and blocks until every worker's run
// loop has exited.
func (s *Service) ShutdownAndWait() {
	s.Shutdown()
	for _, w := range s.workers {
		for !w.Terminated() {
			time.Sleep(time.Millisecond)
		}
	}
}

// ForceShutdown requests termination of every worker. Go provides no
// mechanism to preempt a goroutine blocked inside a running task body, so
// unlike a thread-based implementation this cannot truly interrupt an
// in-progress Execute; it differs from Shutdown only in being explicit that
// the caller does not intend to wait.
func (s *Service) ForceShutdown() {
	s.Shutdown()
}

// GetCurrentExecutorCount returns the fixed worker count.
func (s *Service) GetCurrentExecutorCount() int {
	return len(s.workers)
}

// GetAverageQueueLength returns the mean queue depth across all workers.
func (s *Service) GetAverageQueueLength() float64 {
	if len(s.workers) == 0 {
		return 0
	}
	total := 0
	for _, w := range s.workers {
		total += w.QueueLength()
	}
	s.stats.SetQueueLength(total)
	return float64(total) / float64(len(s.workers))
}
