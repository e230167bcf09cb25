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

// Package task defines the task/handle abstractions shared by every dispatch
// discipline in this module: a single side-effecting EventTask, a
// value-producing ResultTask[R], and the dual-lock Executable state machine
// that both are bound to when submitted to a worker.
package task

import "errors"

// EventTask is a user-supplied unit of work with a single side-effecting
// entry point. It may fail.
type EventTask interface {
	Run() error
}

// EventTaskFunc adapts an ordinary function to an EventTask.
type EventTaskFunc func() error

var _ EventTask = EventTaskFunc(nil)

// Run implements EventTask.
func (f EventTaskFunc) Run() error {
	return f()
}

// ResultTask is a user-supplied unit of work producing a value of type R. It
// may fail, in which case the zero value of R is stored.
type ResultTask[R any] interface {
	Run() (R, error)
}

// ResultTaskFunc adapts an ordinary function to a ResultTask.
type ResultTaskFunc[R any] func() (R, error)

// Run implements ResultTask.
func (f ResultTaskFunc[R]) Run() (R, error) {
	return f()
}

// Sentinel errors of this module: cancel and await never return these, they
// only ever return bool.
var (
	// ErrInvalidState is what the elastic service's dispatch hands to the
	// exception router when a worker taken from its availables queue already
	// holds a task. No Submit method returns it: submitting to a service that
	// is not activated or has been shut down is not checked.
	ErrInvalidState = errors.New("taskexec: invalid state")

	// ErrInvalidArgument is returned for a config that fails validation and
	// for a cyclic submission to the elastic service. Submit does not check
	// for a nil task.
	ErrInvalidArgument = errors.New("taskexec: invalid argument")

	// ErrTaskCancelled names the cancelled outcome of a task. No function in
	// this module returns it: ResultHandle.GetAndWait reports cancellation
	// through its bool result.
	ErrTaskCancelled = errors.New("taskexec: task was cancelled")
)
