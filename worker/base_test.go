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

package worker_test

import (
	"time"

	"github.com/hemera/taskexec/cyclic"
	"github.com/hemera/taskexec/task"
	"github.com/hemera/taskexec/worker"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type nopCyclicTask struct{}

func (nopCyclicTask) Execute() (bool, error) { return true, nil }
func (nopCyclicTask) Cleanup()                {}
func (nopCyclicTask) TerminateSignalled()     {}

var _ = Describe("Base", func() {
	It("assigns each worker a distinct identifier", func() {
		a := worker.NewBase(task.DefaultExceptionRouter())
		b := worker.NewBase(task.DefaultExceptionRouter())
		Expect(a.ID).ShouldNot(Equal(b.ID))
		Expect(a.ID).ShouldNot(BeEmpty())
	})

	It("tracks requested and actual termination independently", func() {
		b := worker.NewBase(task.DefaultExceptionRouter())
		Expect(b.TerminateRequested()).Should(BeFalse())
		Expect(b.Terminated()).Should(BeFalse())

		b.RequestTerminate()
		Expect(b.TerminateRequested()).Should(BeTrue())
		Expect(b.Terminated()).Should(BeFalse())

		b.MarkTerminated()
		Expect(b.Terminated()).Should(BeTrue())
	})

	It("reports cyclic occupancy and propagates terminate to the running cyclic", func() {
		b := worker.NewBase(task.DefaultExceptionRouter())
		Expect(b.IsExecutingCyclic()).Should(BeFalse())

		exe := cyclic.New(nopCyclicTask{}, cyclic.Config{CycleTime: time.Hour}, task.DefaultExceptionRouter())
		b.SetCurrentCyclic(exe)
		Expect(b.IsExecutingCyclic()).Should(BeTrue())

		done := make(chan struct{})
		go func() {
			exe.Execute()
			close(done)
		}()
		time.Sleep(10 * time.Millisecond)

		b.RequestTerminate()
		Eventually(done, time.Second).Should(BeClosed())

		b.SetCurrentCyclic(nil)
		Expect(b.IsExecutingCyclic()).Should(BeFalse())
	})
})
