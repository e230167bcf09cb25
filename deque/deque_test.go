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

package deque_test

import (
	"time"

	"github.com/hemera/taskexec/deque"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Deque", func() {
	It("pops from the head in LIFO order relative to pushes", func() {
		d := deque.New[int](4)
		Expect(d.TryPushHead(1)).Should(BeTrue())
		Expect(d.TryPushHead(2)).Should(BeTrue())
		Expect(d.TryPushHead(3)).Should(BeTrue())

		v, ok := d.PopHead()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(3))

		v, ok = d.PopHead()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(2))
	})

	It("steals from the tail in FIFO order relative to pushes", func() {
		d := deque.New[int](4)
		Expect(d.TryPushHead(1)).Should(BeTrue())
		Expect(d.TryPushHead(2)).Should(BeTrue())
		Expect(d.TryPushHead(3)).Should(BeTrue())

		v, ok := d.PollTail()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(1))

		v, ok = d.PollTail()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(2))
	})

	It("rejects TryPushHead once at capacity", func() {
		d := deque.New[int](2)
		Expect(d.TryPushHead(1)).Should(BeTrue())
		Expect(d.TryPushHead(2)).Should(BeTrue())
		Expect(d.TryPushHead(3)).Should(BeFalse())
		Expect(d.Len()).Should(Equal(2))
	})

	It("unblocks PushHead once a slot frees up", func() {
		d := deque.New[int](1)
		Expect(d.TryPushHead(1)).Should(BeTrue())

		done := make(chan struct{})
		go func() {
			d.PushHead(2)
			close(done)
		}()

		Consistently(done, 20*time.Millisecond).ShouldNot(BeClosed())

		_, ok := d.PopHead()
		Expect(ok).Should(BeTrue())

		Eventually(done).Should(BeClosed())
		Expect(d.Len()).Should(Equal(1))
	})

	It("reports empty correctly and PopHead/PollTail fail on an empty deque", func() {
		d := deque.New[int](2)
		Expect(d.Empty()).Should(BeTrue())

		_, ok := d.PopHead()
		Expect(ok).Should(BeFalse())

		_, ok = d.PollTail()
		Expect(ok).Should(BeFalse())
	})

	It("handles interleaved push/pop/steal around the ring boundary", func() {
		d := deque.New[int](3)
		Expect(d.TryPushHead(1)).Should(BeTrue())
		Expect(d.TryPushHead(2)).Should(BeTrue())

		v, ok := d.PopHead()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(2))

		Expect(d.TryPushHead(3)).Should(BeTrue())
		Expect(d.TryPushHead(4)).Should(BeTrue())

		v, ok = d.PollTail()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(1))

		v, ok = d.PollTail()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(3))
	})
})
