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
	"sync"
	"time"
)

// ServiceListener is the capacity-reached callback contract: a single
// no-payload notification plus the minimum interval between calls.
type ServiceListener interface {
	// CapacityReached is called when a dispatcher has exhausted its fast path
	// and the submitter is, or was about to, block.
	CapacityReached()

	// Frequency returns the minimum interval between CapacityReached calls.
	Frequency() time.Duration
}

// NopServiceListener is a ServiceListener that never fires; it is the default
// when a caller does not supply one.
type NopServiceListener struct{}

// CapacityReached implements ServiceListener.
func (NopServiceListener) CapacityReached() {}

// Frequency implements ServiceListener.
func (NopServiceListener) Frequency() time.Duration { return time.Hour }

// RateLimitedListener wraps a ServiceListener so CapacityReached fires at
// most once per Frequency(): under lock, compare current time to last-call
// time, invoke only if elapsed >= frequency. Panics or errors escaping the
// wrapped listener are routed to router rather than propagated to the
// dispatching worker.
type RateLimitedListener struct {
	mu       sync.Mutex
	inner    ServiceListener
	router   ExceptionRouter
	lastCall time.Time
}

// NewRateLimitedListener wraps inner with rate limiting. A nil inner is
// treated as NopServiceListener.
func NewRateLimitedListener(inner ServiceListener, router ExceptionRouter) *RateLimitedListener {
	if inner == nil {
		inner = NopServiceListener{}
	}
	return &RateLimitedListener{inner: inner, router: router}
}

// NotifyCapacityReached invokes the wrapped listener's CapacityReached if at
// least Frequency() has elapsed since the previous successful call.
func (l *RateLimitedListener) NotifyCapacityReached() {
	l.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(l.lastCall)
	frequency := l.inner.Frequency()
	if l.lastCall.IsZero() || elapsed >= frequency {
		l.lastCall = now
		l.mu.Unlock()

		defer recoverAndRoute(l.router)
		l.inner.CapacityReached()
		return
	}
	l.mu.Unlock()
}
