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

package task

import (
	"log"
	"sync"
)

// ExceptionRouter is the external collaborator for any escaped task error or
// executor-loop error: a single method, called concurrently from every
// worker, that must tolerate reentrancy and must not itself panic.
type ExceptionRouter interface {
	Handle(err error)
}

// ExceptionRouterFunc adapts a function to an ExceptionRouter.
type ExceptionRouterFunc func(err error)

// Handle implements ExceptionRouter.
func (f ExceptionRouterFunc) Handle(err error) { f(err) }

// defaultRouter logs to the standard log package, guarded by a mutex so
// concurrent workers don't interleave log lines. This is deliberately the
// bare minimum: process-wide logging is an external collaborator, not
// something this module owns. A host embedding this module is expected to
// supply its own ExceptionRouter.
type defaultRouter struct {
	mu     sync.Mutex
	logger *log.Logger
}

// DefaultExceptionRouter returns an ExceptionRouter that logs escaped errors
// with the standard library logger. It is reentrant: concurrent calls from
// different workers are serialized internally and never panic.
func DefaultExceptionRouter() ExceptionRouter {
	return &defaultRouter{logger: log.Default()}
}

// Handle implements ExceptionRouter.
func (r *defaultRouter) Handle(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Printf("taskexec: unhandled task error: %v", err)
}
