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

// Package stats collects runtime counters and Prometheus metrics shared by
// the assisted and elastic services: worker lifecycle counts, task outcome
// counters, and wait/execution time distributions.
package stats

import (
	"go.uber.org/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Pool accumulates counters for a single service instance. The zero value is
// not usable; construct with New or NewWithRegistry.
type Pool struct {
	name string

	workersAlive   atomic.Int64
	workersCreated atomic.Int64
	workersKilled  atomic.Int64

	tasksSubmitted atomic.Int64
	tasksCompleted atomic.Int64
	tasksCancelled atomic.Int64
	tasksPanicked  atomic.Int64
	tasksRejected  atomic.Int64

	workersAliveGauge   prometheus.Gauge
	workersCreatedTotal prometheus.Counter
	workersKilledTotal  prometheus.Counter

	tasksSubmittedTotal prometheus.Counter
	tasksCompletedTotal prometheus.Counter
	tasksCancelledTotal prometheus.Counter
	tasksPanickedTotal  prometheus.Counter
	tasksRejectedTotal  prometheus.Counter

	queueLength prometheus.Gauge
	waitingTime prometheus.Histogram
	executeTime prometheus.Histogram
}

// New builds a Pool with its own private Prometheus registry, returned
// alongside it so the caller can mount it under promhttp.HandlerFor wherever
// it sees fit. A private registry per Pool, rather than registering against
// the package-global DefaultRegisterer, is what lets a library package like
// this one be constructed more than once per process (e.g. one assisted and
// one elastic service) without tripping a duplicate-registration panic.
func New(name string) (*Pool, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(name, reg), reg
}

// NewWithRegistry builds a Pool registering its collectors against reg
// instead of a freshly allocated registry. A nil reg skips registration
// entirely, which is useful in tests that construct many Pools and would
// otherwise trip Prometheus's duplicate-registration panic.
func NewWithRegistry(name string, reg prometheus.Registerer) *Pool {
	labels := prometheus.Labels{"pool": name}

	p := &Pool{
		name: name,

		workersAliveGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "taskexec_workers_alive",
			Help:        "Number of workers currently alive.",
			ConstLabels: labels,
		}),
		workersCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "taskexec_workers_created_total",
			Help:        "Total number of workers started.",
			ConstLabels: labels,
		}),
		workersKilledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "taskexec_workers_killed_total",
			Help:        "Total number of workers that have exited.",
			ConstLabels: labels,
		}),

		tasksSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "taskexec_tasks_submitted_total",
			Help:        "Total number of tasks accepted for dispatch.",
			ConstLabels: labels,
		}),
		tasksCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "taskexec_tasks_completed_total",
			Help:        "Total number of tasks that ran to completion.",
			ConstLabels: labels,
		}),
		tasksCancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "taskexec_tasks_cancelled_total",
			Help:        "Total number of tasks cancelled before or during execution.",
			ConstLabels: labels,
		}),
		tasksPanickedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "taskexec_tasks_panicked_total",
			Help:        "Total number of tasks whose execution panicked.",
			ConstLabels: labels,
		}),
		tasksRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "taskexec_tasks_rejected_total",
			Help:        "Total number of tasks refused outright, e.g. a cyclic submission to the elastic service.",
			ConstLabels: labels,
		}),

		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "taskexec_queue_length",
			Help:        "Number of tasks currently queued but not yet running.",
			ConstLabels: labels,
		}),
		waitingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "taskexec_task_waiting_seconds",
			Help:        "Time a task spent queued before a worker began executing it.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		executeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "taskexec_task_execution_seconds",
			Help:        "Time a worker spent inside a task's Execute call.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(
			p.workersAliveGauge, p.workersCreatedTotal, p.workersKilledTotal,
			p.tasksSubmittedTotal, p.tasksCompletedTotal, p.tasksCancelledTotal,
			p.tasksPanickedTotal, p.tasksRejectedTotal,
			p.queueLength, p.waitingTime, p.executeTime,
		)
	}

	return p
}

// RecordWorkerCreated marks a new worker as having been started. The atomic
// counters back Snapshot's fast-path read; the Prometheus collectors are
// kept in lockstep for scrape-based introspection, since prometheus.Counter
// and prometheus.Gauge expose no public way to read back the value a
// Snapshot needs.
func (p *Pool) RecordWorkerCreated() {
	p.workersAlive.Inc()
	p.workersCreated.Inc()
	p.workersAliveGauge.Inc()
	p.workersCreatedTotal.Inc()
}

// RecordWorkerKilled marks a worker as having exited.
func (p *Pool) RecordWorkerKilled() {
	p.workersAlive.Dec()
	p.workersKilled.Inc()
	p.workersAliveGauge.Dec()
	p.workersKilledTotal.Inc()
}

// RecordSubmitted marks a task as having been accepted for dispatch.
func (p *Pool) RecordSubmitted() {
	p.tasksSubmitted.Inc()
	p.tasksSubmittedTotal.Inc()
}

// RecordRejected marks a task as having been refused, e.g. a cyclic
// submission to the elastic service.
func (p *Pool) RecordRejected() {
	p.tasksRejected.Inc()
	p.tasksRejectedTotal.Inc()
}

// RecordDispatched observes how long a task waited between submission and
// a worker starting to execute it.
func (p *Pool) RecordDispatched(waitSeconds float64) {
	p.waitingTime.Observe(waitSeconds)
}

// RecordCompleted observes a task's execution time and marks it completed.
func (p *Pool) RecordCompleted(execSeconds float64) {
	p.tasksCompleted.Inc()
	p.tasksCompletedTotal.Inc()
	p.executeTime.Observe(execSeconds)
}

// RecordCancelled marks a task as having been cancelled before or during
// execution rather than completing normally.
func (p *Pool) RecordCancelled() {
	p.tasksCancelled.Inc()
	p.tasksCancelledTotal.Inc()
}

// RecordPanicked marks a task whose execution panicked and was routed to
// the exception router.
func (p *Pool) RecordPanicked() {
	p.tasksPanicked.Inc()
	p.tasksPanickedTotal.Inc()
}

// SetQueueLength reports the current number of queued-but-not-running
// tasks across the pool.
func (p *Pool) SetQueueLength(n int) {
	p.queueLength.Set(float64(n))
}

// Snapshot returns a point-in-time copy of every counter.
func (p *Pool) Snapshot() Snapshot {
	return Snapshot{
		Name:           p.name,
		WorkersAlive:   p.workersAlive.Load(),
		WorkersCreated: p.workersCreated.Load(),
		WorkersKilled:  p.workersKilled.Load(),
		TasksSubmitted: p.tasksSubmitted.Load(),
		TasksCompleted: p.tasksCompleted.Load(),
		TasksCancelled: p.tasksCancelled.Load(),
		TasksPanicked:  p.tasksPanicked.Load(),
		TasksRejected:  p.tasksRejected.Load(),
	}
}
