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

// Package worker holds the state every dedicated worker thread carries
// regardless of which service owns it: a stable identifier, the
// requested-termination and thread-terminated flags, the exception router,
// and a back-pointer to whatever cyclic executable it currently runs (so a
// terminate request can break its inter-cycle sleep). assist.Worker and
// scale.Worker both embed Base.
package worker

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hemera/taskexec/cyclic"
	"github.com/hemera/taskexec/task"
)

// Base is the shared worker lifecycle state: created -> started once -> run
// loop -> thread-terminated.
type Base struct {
	ID     string
	Router task.ExceptionRouter

	mu                 sync.Mutex
	terminateRequested bool
	terminated         bool
	currentCyclic      *cyclic.Executable
}

// NewBase creates worker state with a fresh identifier.
func NewBase(router task.ExceptionRouter) Base {
	return Base{ID: uuid.NewString(), Router: router}
}

// RequestTerminate sets the requested-termination flag and, if a cyclic
// executable is currently running on this worker, asks it to stop so an
// unbounded inter-cycle sleep does not block shutdown indefinitely.
func (b *Base) RequestTerminate() {
	b.mu.Lock()
	b.terminateRequested = true
	current := b.currentCyclic
	b.mu.Unlock()

	if current != nil {
		current.Terminate()
	}
}

// TerminateRequested reports whether RequestTerminate has been called.
func (b *Base) TerminateRequested() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.terminateRequested
}

// MarkTerminated records that this worker's run loop has exited.
func (b *Base) MarkTerminated() {
	b.mu.Lock()
	b.terminated = true
	b.mu.Unlock()
}

// Terminated reports whether this worker's run loop has exited.
func (b *Base) Terminated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.terminated
}

// SetCurrentCyclic records the cyclic executable presently running on this
// worker, or clears it (pass nil) once that cyclic's Execute returns.
func (b *Base) SetCurrentCyclic(c *cyclic.Executable) {
	b.mu.Lock()
	b.currentCyclic = c
	b.mu.Unlock()
}

// IsExecutingCyclic reports whether this worker currently has a cyclic
// executable bound, which the assisted dispatcher uses to skip occupied
// workers during round-robin selection.
func (b *Base) IsExecutingCyclic() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentCyclic != nil
}
