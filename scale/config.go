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

// Package scale implements the elastic service: a pool that keeps Min
// workers warm, grows on demand up to Max as load arrives, and lets on-demand
// workers retire themselves after sitting idle past their timeout.
package scale

import (
	"fmt"
	"time"

	"github.com/hemera/taskexec/task"
)

// Config configures a Service.
type Config struct {
	// Name labels the Service's Prometheus collectors and its stats
	// snapshot. Defaults to "scale" if empty.
	Name string

	// Min is the number of workers created and kept alive at activation
	// (required, >= 0).
	Min int

	// Max bounds the total number of workers ever alive at once (required,
	// >= Min and > 0).
	Max int

	// OnDemandIdleTimeout is how long an on-demand worker waits for a new
	// task before attempting to retire itself (required, > 0).
	OnDemandIdleTimeout time.Duration

	// Router receives errors that escape task bodies and the dispatch loop.
	// Defaults to task.DefaultExceptionRouter() if nil.
	Router task.ExceptionRouter

	// Listener is notified when dispatch saturates at Max.
	// Defaults to task.NopServiceListener{} if nil.
	Listener task.ServiceListener
}

// Validate verifies config values.
func (c *Config) Validate() error {
	if c.Min < 0 {
		return fmt.Errorf("%w: scale: Min must be >= 0", task.ErrInvalidArgument)
	}
	if c.Max <= 0 {
		return fmt.Errorf("%w: scale: Max must be > 0", task.ErrInvalidArgument)
	}
	if c.Max < c.Min {
		return fmt.Errorf("%w: scale: Max (%d) must be >= Min (%d)", task.ErrInvalidArgument, c.Max, c.Min)
	}
	if c.OnDemandIdleTimeout <= 0 {
		return fmt.Errorf("%w: scale: OnDemandIdleTimeout must be > 0", task.ErrInvalidArgument)
	}
	return nil
}
