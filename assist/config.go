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

// Package assist implements the fixed-size, work-stealing service: a
// round-robin dispatcher over a bounded array of workers, each with its own
// double-ended queue of executables, that additionally steal from each
// other's queue tails when idle.
package assist

import (
	"fmt"
	"time"

	"github.com/hemera/taskexec/task"
)

// Config configures an assisted Service.
type Config struct {
	// Name labels the Service's Prometheus collectors and its stats
	// snapshot. Defaults to "assist" if empty.
	Name string

	// WorkerCount is the fixed number of workers in the pool (required, > 0).
	WorkerCount int

	// BufferCapacity is the bound on each worker's local deque (required, > 0).
	BufferCapacity int

	// IdleTimeout bounds how long an idle worker waits before re-checking its
	// queue and termination flag, and is also the back-off between full
	// dispatch rotations when every worker is occupied by a cyclic task.
	IdleTimeout time.Duration

	// Router receives errors that escape task bodies and the dispatch loop.
	// Defaults to task.DefaultExceptionRouter() if nil.
	Router task.ExceptionRouter

	// Listener is notified when dispatch or deque assignment saturates.
	// Defaults to task.NopServiceListener{} if nil.
	Listener task.ServiceListener
}

// Validate verifies config values, mirroring the fail-fast contract every
// service factory in this module carries.
func (c *Config) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: assist: WorkerCount must be > 0", task.ErrInvalidArgument)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("%w: assist: BufferCapacity must be > 0", task.ErrInvalidArgument)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("%w: assist: IdleTimeout must be > 0", task.ErrInvalidArgument)
	}
	return nil
}
