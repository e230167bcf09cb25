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

package task_test

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/hemera/taskexec/task"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventExecutable", func() {
	It("runs the body and completes", func() {
		var ran int32
		handle := task.NewEventExecutable(task.EventTaskFunc(func() error {
			atomic.AddInt32(&ran, 1)
			return nil
		}), task.DefaultExceptionRouter())

		handle.Execute()

		Expect(handle.Await()).Should(BeTrue())
		Expect(atomic.LoadInt32(&ran)).Should(Equal(int32(1)))
	})

	It("routes an error without surfacing it to the submitter", func() {
		var routed error
		router := task.ExceptionRouterFunc(func(err error) { routed = err })

		handle := task.NewEventExecutable(task.EventTaskFunc(func() error {
			return errors.New("boom")
		}), router)

		handle.Execute()

		Expect(handle.Await()).Should(BeTrue())
		Expect(routed).Should(MatchError("boom"))
	})

	It("routes a panic and still completes", func() {
		var routed error
		router := task.ExceptionRouterFunc(func(err error) { routed = err })

		handle := task.NewEventExecutable(task.EventTaskFunc(func() error {
			panic("kaboom")
		}), router)

		handle.Execute()

		Expect(handle.Await()).Should(BeTrue())
		Expect(routed).ShouldNot(BeNil())
	})

	It("cancels before the body starts", func() {
		var ran int32
		handle := task.NewEventExecutable(task.EventTaskFunc(func() error {
			atomic.AddInt32(&ran, 1)
			return nil
		}), task.DefaultExceptionRouter())

		Expect(handle.Cancel()).Should(BeTrue())

		go handle.Execute()

		Expect(handle.Await()).Should(BeFalse())
		Expect(atomic.LoadInt32(&ran)).Should(Equal(int32(0)))
	})

	It("fails to cancel once the body has started", func() {
		started := make(chan struct{})
		release := make(chan struct{})

		handle := task.NewEventExecutable(task.EventTaskFunc(func() error {
			close(started)
			<-release
			return nil
		}), task.DefaultExceptionRouter())

		go handle.Execute()
		<-started

		Expect(handle.Cancel()).Should(BeFalse())
		close(release)

		Expect(handle.Await()).Should(BeTrue())
	})

	It("is a no-op to cancel a terminal handle", func() {
		handle := task.NewEventExecutable(task.EventTaskFunc(func() error {
			return nil
		}), task.DefaultExceptionRouter())

		handle.Execute()
		Expect(handle.Await()).Should(BeTrue())
		Expect(handle.Cancel()).Should(BeFalse())
	})

	It("times out Await without side effects on the handle", func() {
		release := make(chan struct{})
		handle := task.NewEventExecutable(task.EventTaskFunc(func() error {
			<-release
			return nil
		}), task.DefaultExceptionRouter())

		go handle.Execute()

		Expect(handle.AwaitTimeout(10 * time.Millisecond)).Should(BeFalse())
		close(release)
		Expect(handle.Await()).Should(BeTrue())
	})
})

var _ = Describe("ResultExecutable", func() {
	It("stores the result atomically with completion", func() {
		handle := task.NewResultExecutable[int](task.ResultTaskFunc[int](func() (int, error) {
			return 42, nil
		}), task.DefaultExceptionRouter())

		handle.Execute()

		v, ok := handle.GetAndWait()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(42))
	})

	It("returns the zero value when cancelled", func() {
		handle := task.NewResultExecutable[string](task.ResultTaskFunc[string](func() (string, error) {
			return "unused", nil
		}), task.DefaultExceptionRouter())

		Expect(handle.Cancel()).Should(BeTrue())

		v, ok := handle.GetAndWaitTimeout(0)
		Expect(ok).Should(BeFalse())
		Expect(v).Should(Equal(""))
	})

	It("returns the zero value when the task errors", func() {
		handle := task.NewResultExecutable[int](task.ResultTaskFunc[int](func() (int, error) {
			return 7, errors.New("nope")
		}), task.DefaultExceptionRouter())

		handle.Execute()

		v, ok := handle.GetAndWait()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(0))
	})
})

var _ = Describe("RateLimitedListener", func() {
	It("fires at most once per frequency window", func() {
		var calls int32
		listener := task.NewRateLimitedListener(fakeListener{
			onCapacityReached: func() { atomic.AddInt32(&calls, 1) },
			frequency:         50 * time.Millisecond,
		}, task.DefaultExceptionRouter())

		for i := 0; i < 5; i++ {
			listener.NotifyCapacityReached()
		}
		Expect(atomic.LoadInt32(&calls)).Should(Equal(int32(1)))

		time.Sleep(60 * time.Millisecond)
		listener.NotifyCapacityReached()
		Expect(atomic.LoadInt32(&calls)).Should(Equal(int32(2)))
	})

	It("routes a panicking listener instead of propagating", func() {
		var routed error
		router := task.ExceptionRouterFunc(func(err error) { routed = err })

		listener := task.NewRateLimitedListener(fakeListener{
			onCapacityReached: func() { panic("listener exploded") },
			frequency:         time.Millisecond,
		}, router)

		listener.NotifyCapacityReached()
		Expect(routed).ShouldNot(BeNil())
	})
})

type fakeListener struct {
	onCapacityReached func()
	frequency         time.Duration
}

func (l fakeListener) CapacityReached()        { l.onCapacityReached() }
func (l fakeListener) Frequency() time.Duration { return l.frequency }
