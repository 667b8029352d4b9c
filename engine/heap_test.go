package engine_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/engine"
)

var _ = Describe("Heap", func() {
	It("pops elements in ascending order", func() {
		h := engine.NewHeap[int](func(a, b int) bool { return a < b })
		for _, v := range []int{5, 1, 4, 2, 3} {
			h.Insert(v)
		}
		var got []int
		for h.Size() > 0 {
			v, _ := h.PopMin()
			got = append(got, v)
		}
		Expect(got).To(Equal([]int{1, 2, 3, 4, 5}))
	})

	It("drains only items that are ready", func() {
		type event struct {
			cycle int
			id    string
		}
		h := engine.NewHeap[event](func(a, b event) bool { return a.cycle < b.cycle })
		h.Insert(event{cycle: 3, id: "c"})
		h.Insert(event{cycle: 1, id: "a"})
		h.Insert(event{cycle: 2, id: "b"})
		h.Insert(event{cycle: 5, id: "e"})

		var drained []string
		h.DrainUpTo(func(e event) bool { return e.cycle <= 3 }, func(e event) {
			drained = append(drained, e.id)
		})
		Expect(drained).To(Equal([]string{"a", "b", "c"}))
		Expect(h.Size()).To(Equal(1))

		peek, ok := h.Peek()
		Expect(ok).To(BeTrue())
		Expect(peek.id).To(Equal("e"))
	})

	It("reports empty correctly", func() {
		h := engine.NewHeap[int](func(a, b int) bool { return a < b })
		_, ok := h.PopMin()
		Expect(ok).To(BeFalse())
		_, ok = h.Peek()
		Expect(ok).To(BeFalse())
	})
})
