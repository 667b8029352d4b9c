package engine_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/engine"
)

var _ = Describe("CircQ", func() {
	It("maintains FIFO order across wraparound", func() {
		q := engine.NewCircQ[int](4)
		Expect(q.Insert(1)).To(BeTrue())
		Expect(q.Insert(2)).To(BeTrue())
		v, _ := q.Delete()
		Expect(v).To(Equal(1))
		Expect(q.Insert(3)).To(BeTrue())
		Expect(q.Insert(4)).To(BeTrue())
		Expect(q.Insert(5)).To(BeTrue())
		Expect(q.Full()).To(BeTrue())
		Expect(q.Insert(6)).To(BeFalse())

		var got []int
		for q.Len() > 0 {
			v, _ := q.Delete()
			got = append(got, v)
		}
		Expect(got).To(Equal([]int{2, 3, 4, 5}))
	})

	It("supports binary search over a tag-ordered queue", func() {
		q := engine.NewCircQ[int](8)
		for _, v := range []int{10, 20, 30, 40, 50} {
			q.Insert(v)
		}
		idx, ok := q.Search(func(e int) int { return e - 30 })
		Expect(ok).To(BeTrue())
		Expect(idx).To(Equal(2))

		_, ok = q.Search(func(e int) int { return e - 35 })
		Expect(ok).To(BeFalse())
	})

	It("deletes an arbitrary element and preserves order", func() {
		q := engine.NewCircQ[int](8)
		for _, v := range []int{1, 2, 3, 4} {
			q.Insert(v)
		}
		Expect(q.DeleteElt(1)).To(BeTrue())
		var got []int
		q.Each(func(_ int, e int) bool { got = append(got, e); return true })
		Expect(got).To(Equal([]int{1, 3, 4}))
	})

	It("supports tail insertion and deletion for flush-from-tail", func() {
		q := engine.NewCircQ[int](4)
		q.Insert(1)
		q.Insert(2)
		q.InsertAtHead(0)
		v, _ := q.PeekHead()
		Expect(v).To(Equal(0))
		v, _ = q.DeleteFromTail()
		Expect(v).To(Equal(2))
	})
})
