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

package assist_test

import (
	"sync/atomic"
	"time"

	"github.com/hemera/taskexec/assist"
	"github.com/hemera/taskexec/cyclic"
	"github.com/hemera/taskexec/task"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Service", func() {
	It("runs a submitted event task to completion", func() {
		s, err := assist.New(assist.Config{WorkerCount: 2, BufferCapacity: 4, IdleTimeout: 10 * time.Millisecond})
		Expect(err).ShouldNot(HaveOccurred())
		s.Activate()
		defer s.Shutdown()

		var ran int32
		handle := s.Submit(task.EventTaskFunc(func() error {
			atomic.AddInt32(&ran, 1)
			return nil
		}))

		Expect(handle.Await()).Should(BeTrue())
		Expect(atomic.LoadInt32(&ran)).Should(Equal(int32(1)))
	})

	It("returns a result through SubmitResult", func() {
		s, err := assist.New(assist.Config{WorkerCount: 1, BufferCapacity: 4, IdleTimeout: 10 * time.Millisecond})
		Expect(err).ShouldNot(HaveOccurred())
		s.Activate()
		defer s.Shutdown()

		handle := assist.SubmitResult[string](s, task.ResultTaskFunc[string](func() (string, error) {
			return "done", nil
		}))

		v, ok := handle.GetAndWait()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal("done"))
	})

	It("lets an idle worker steal work queued on a busy peer", func() {
		s, err := assist.New(assist.Config{WorkerCount: 2, BufferCapacity: 8, IdleTimeout: 5 * time.Millisecond})
		Expect(err).ShouldNot(HaveOccurred())
		s.Activate()
		defer s.Shutdown()

		block := make(chan struct{})
		// Occupy worker 0 so the submissions round robin places on it back up
		// in its deque until worker 1 steals them.
		s.Submit(task.EventTaskFunc(func() error {
			<-block
			return nil
		}))

		var completed int32
		var handles []task.Handle
		for i := 0; i < 10; i++ {
			handles = append(handles, s.Submit(task.EventTaskFunc(func() error {
				atomic.AddInt32(&completed, 1)
				return nil
			})))
		}

		// The stuck worker's peer should drain these via work stealing even
		// though the first task never completes.
		for _, h := range handles {
			Expect(h.AwaitTimeout(time.Second)).Should(BeTrue())
		}
		Expect(atomic.LoadInt32(&completed)).Should(Equal(int32(10)))

		close(block)
	})

	It("skips workers occupied by a cyclic task during round-robin dispatch", func() {
		s, err := assist.New(assist.Config{WorkerCount: 2, BufferCapacity: 4, IdleTimeout: 5 * time.Millisecond})
		Expect(err).ShouldNot(HaveOccurred())
		s.Activate()
		defer s.Shutdown()

		release := make(chan struct{})
		cyclicHandle := s.SubmitCyclic(&blockingCyclicTask{release: release}, cyclic.Config{CycleTime: time.Hour, Count: 1})
		time.Sleep(20 * time.Millisecond) // let it be picked up and occupy its worker

		var ran int32
		handle := s.Submit(task.EventTaskFunc(func() error {
			atomic.AddInt32(&ran, 1)
			return nil
		}))
		Expect(handle.AwaitTimeout(time.Second)).Should(BeTrue())
		Expect(atomic.LoadInt32(&ran)).Should(Equal(int32(1)))

		close(release)
		Expect(cyclicHandle.Await()).Should(BeTrue())
	})

	It("reports worker count and average queue length", func() {
		s, err := assist.New(assist.Config{WorkerCount: 3, BufferCapacity: 4, IdleTimeout: 5 * time.Millisecond})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(s.GetCurrentExecutorCount()).Should(Equal(3))
		Expect(s.GetAverageQueueLength()).Should(Equal(0.0))
	})

	It("records submitted and completed task counters", func() {
		s, err := assist.New(assist.Config{Name: "stats-check", WorkerCount: 2, BufferCapacity: 4, IdleTimeout: 5 * time.Millisecond})
		Expect(err).ShouldNot(HaveOccurred())
		s.Activate()
		defer s.Shutdown()

		handle := s.Submit(task.EventTaskFunc(func() error { return nil }))
		Expect(handle.Await()).Should(BeTrue())

		snap := s.Stats()
		Expect(snap.Name).Should(Equal("stats-check"))
		Expect(snap.TasksSubmitted).Should(Equal(int64(1)))
		Expect(snap.TasksCompleted).Should(Equal(int64(1)))
		Expect(snap.WorkersCreated).Should(Equal(int64(2)))
	})

	It("rejects a config with a non-positive worker count", func() {
		_, err := assist.New(assist.Config{WorkerCount: 0, BufferCapacity: 4, IdleTimeout: time.Millisecond})
		Expect(err).Should(HaveOccurred())
	})

	It("waits for every worker to exit on ShutdownAndWait", func() {
		s, err := assist.New(assist.Config{WorkerCount: 2, BufferCapacity: 4, IdleTimeout: 5 * time.Millisecond})
		Expect(err).ShouldNot(HaveOccurred())
		s.Activate()

		handle := s.Submit(task.EventTaskFunc(func() error { return nil }))
		Expect(handle.Await()).Should(BeTrue())

		done := make(chan struct{})
		go func() {
			s.ShutdownAndWait()
			close(done)
		}()
		Eventually(done, time.Second).Should(BeClosed())
	})
})

type blockingCyclicTask struct {
	release chan struct{}
}

func (t *blockingCyclicTask) Execute() (bool, error) {
	<-t.release
	return false, nil
}
func (t *blockingCyclicTask) Cleanup()            {}
func (t *blockingCyclicTask) TerminateSignalled() {}
