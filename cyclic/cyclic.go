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

// Package cyclic implements rate-regulated repeated execution: a Task is
// invoked over and over, with the implementation trying to keep CycleTime
// between the start of successive invocations, until it is told to stop one
// of three ways (declared count exhausted, the task itself returns false, or
// an external Terminate call).
package cyclic

import "time"

// Task is a user-supplied unit of work that runs repeatedly. Execute returns
// false to request self-termination after the current cycle. Cleanup runs
// exactly once, after the last cycle. TerminateSignalled is invoked (from
// whatever goroutine calls Executable.Terminate) so a long-running Execute
// call can observe the early-exit request rather than block it.
type Task interface {
	// Execute runs one cycle. Returning false requests that no further cycles
	// run.
	Execute() (bool, error)

	// Cleanup is invoked exactly once, after the final cycle (successful,
	// self-terminated, errored, or externally terminated).
	Cleanup()

	// TerminateSignalled is called when Executable.Terminate is requested,
	// regardless of which cycle is currently running.
	TerminateSignalled()
}

// Config declares a cyclic task's rate budget and bound.
type Config struct {
	// CycleTime is the target maximum wall-clock duration between the start of
	// two consecutive invocations of Task.Execute. A zero budget means back to
	// back with no inter-cycle wait.
	CycleTime time.Duration

	// Count bounds the number of successful entries into Task.Execute. A
	// value <= 0 means unbounded: only a false return or an explicit Terminate
	// stops the loop.
	Count int
}
