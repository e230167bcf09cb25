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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hemera/taskexec/cyclic"
	"github.com/hemera/taskexec/queue"
	"github.com/hemera/taskexec/stats"
	"github.com/hemera/taskexec/task"
)

// Service is an elastic pool: Min workers stay alive permanently, further
// workers are created on demand up to Max as submissions arrive, and
// on-demand workers retire themselves after an idle timeout.
type Service struct {
	cfg        Config
	executors  *queue.Queue[*Worker]
	availables *queue.Queue[*Worker]
	router     task.ExceptionRouter
	listener   *task.RateLimitedListener
	stats      *stats.Pool
	registry   *prometheus.Registry
	activated  sync.Once
}

// New constructs a Service. Activate must be called before Submit.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Router == nil {
		cfg.Router = task.DefaultExceptionRouter()
	}
	if cfg.Name == "" {
		cfg.Name = "scale"
	}

	statsPool, registry := stats.New(cfg.Name)

	return &Service{
		cfg:        cfg,
		executors:  queue.New[*Worker](cfg.Max),
		availables: queue.New[*Worker](cfg.Max),
		router:     cfg.Router,
		listener:   task.NewRateLimitedListener(cfg.Listener, cfg.Router),
		stats:      statsPool,
		registry:   registry,
	}, nil
}

// Activate creates Min workers, adds each to both collections, and starts
// them. Calling Activate more than once has no additional effect: a second
// call must not create further Min workers, which would push the executor
// count past Max and double-count worker-created stats.
func (s *Service) Activate() {
	s.activated.Do(func() {
		for i := 0; i < s.cfg.Min; i++ {
			w := newWorker(s, s.router, false, 0)
			s.executors.TryPushTail(w)
			s.availables.TryPushTail(w)
			w.Start()
		}
	})
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

// Submit assigns an EventTask to an available or newly created worker.
func (s *Service) Submit(t task.EventTask) task.Handle {
	exe := task.NewEventExecutable(t, s.router)
	s.dispatch(exe)
	return exe
}

// SubmitResult assigns a ResultTask[R]. It is a package-level function
// because Go methods cannot introduce their own type parameters.
func SubmitResult[R any](s *Service, t task.ResultTask[R]) task.ResultHandle[R] {
	exe := task.NewResultExecutable[R](t, s.router)
	s.dispatch(exe)
	return exe
}

// SubmitCyclic always fails: cyclic submissions are not supported by the
// elastic service.
func (s *Service) SubmitCyclic(_ cyclic.Task, _ cyclic.Config) (cyclic.Handle, error) {
	s.stats.RecordRejected()
	return nil, fmt.Errorf("%w: scale: cyclic tasks are not accepted by the elastic service", task.ErrInvalidArgument)
}

func (s *Service) dispatch(item task.Runnable) {
	s.stats.RecordSubmitted()
	for {
		if w, ok := s.availables.PollHead(); ok {
			if w.assign(item) {
				return
			}
			// The worker was not actually free; this should never happen since
			// only the holder of a PollHead result may assign to it.
			s.router.Handle(task.ErrInvalidState)
			continue
		}

		w := newWorker(s, s.router, true, s.cfg.OnDemandIdleTimeout)
		if s.executors.TryPushTail(w) {
			w.Start()
			w.assign(item)
			return
		}

		// At Max: notify the capacity listener, then block until a worker
		// becomes available.
		s.listener.NotifyCapacityReached()
		w, ok := s.availables.TakeHead(context.Background())
		if !ok {
			continue
		}
		if w.assign(item) {
			return
		}
		s.router.Handle(task.ErrInvalidState)
	}
}

// recycle is called by a worker after it finishes an executable. A failed
// insert means the pool is over capacity for this worker (a concurrent
// Activate/dispatch race); the worker is surplus and asked to retire.
func (s *Service) recycle(w *Worker) {
	if !s.availables.TryPushTail(w) {
		s.executors.Remove(w)
		w.RequestTerminate()
	}
}

// remove atomically (from availables' perspective) removes an on-demand
// worker from both collections. It returns true only if the worker was
// still sitting in availables, i.e. had not meanwhile been claimed by a
// racing dispatch.
func (s *Service) remove(w *Worker) bool {
	if !s.availables.Remove(w) {
		return false
	}
	s.executors.Remove(w)
	return true
}

// Shutdown requests termination of every known worker without waiting.
func (s *Service) Shutdown() {
	for {
		w, ok := s.executors.PollHead()
		if !ok {
			return
		}
		w.RequestTerminate()
	}
}

// ShutdownAndWait requests termination of every worker and blocks until all
// of them have exited.
func (s *Service) ShutdownAndWait() {
	var terminating []*Worker
	for {
		w, ok := s.executors.PollHead()
		if !ok {
			break
		}
		w.RequestTerminate()
		terminating = append(terminating, w)
	}
	for _, w := range terminating {
		for !w.Terminated() {
			time.Sleep(time.Millisecond)
		}
	}
}

// ForceShutdown requests termination of every worker. As with the assisted
// service, Go has no mechanism to preempt a goroutine already inside a
// running task body, so this differs from Shutdown only in intent.
func (s *Service) ForceShutdown() {
	s.Shutdown()
}

// GetAvailableCount returns the number of workers presently idle.
func (s *Service) GetAvailableCount() int {
	return s.availables.Len()
}

// GetCurrentExecutorCount returns the number of workers presently alive.
func (s *Service) GetCurrentExecutorCount() int {
	executors := s.executors.Len()
	s.stats.SetQueueLength(executors - s.availables.Len())
	return executors
}
