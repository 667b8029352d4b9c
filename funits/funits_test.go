package funits_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/funits"
)

var _ = Describe("Pool", func() {
	specs := [4]funits.Spec{
		funits.ALU:  {Count: 1, Latency: 1, Repeat: 1},
		funits.FPU:  {Count: 1, Latency: 4, Repeat: 2},
		funits.ADDR: {Count: 2, Latency: 1, Repeat: 1},
		funits.MEM:  {Count: 1, Latency: 2, Repeat: 1},
	}

	It("refuses issue when a unit kind is exhausted", func() {
		p := funits.NewPool(specs)
		Expect(p.Issue(funits.ALU, &engine.Instance{}, 1, 0, false)).To(BeTrue())
		Expect(p.Issue(funits.ALU, &engine.Instance{}, 2, 0, false)).To(BeFalse())
	})

	It("drains a completion at its scheduled cycle and frees the unit on repeat", func() {
		p := funits.NewPool(specs)
		p.Issue(funits.FPU, &engine.Instance{}, 7, 0, false)
		Expect(p.Avail(funits.FPU)).To(Equal(0))

		var completed []engine.Tag
		p.DrainCompletions(3, func(e funits.RunningEvent) { completed = append(completed, e.Tag) })
		Expect(completed).To(BeEmpty())

		p.DrainCompletions(4, func(e funits.RunningEvent) { completed = append(completed, e.Tag) })
		Expect(completed).To(ConsistOf(engine.Tag(7)))

		var freed []funits.Kind
		p.DrainFreeingUnits(2, func(k funits.Kind) { freed = append(freed, k) })
		Expect(freed).To(ConsistOf(funits.FPU))
		Expect(p.Avail(funits.FPU)).To(Equal(1))
	})

	It("applies fast mode to collapse latency and repeat to 1", func() {
		p := funits.NewPool(specs)
		p.FastMode = true
		p.Issue(funits.FPU, &engine.Instance{}, 1, 10, false)
		var completed []engine.Tag
		p.DrainCompletions(11, func(e funits.RunningEvent) { completed = append(completed, e.Tag) })
		Expect(completed).To(ConsistOf(engine.Tag(1)))
	})
})
