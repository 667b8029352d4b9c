package traptable_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/isa"
	"github.com/rsimgroup/rsim/traptable"
)

var _ = Describe("Build", func() {
	It("builds a 17-store spill program ending in SAVED then DONE", func() {
		ops := traptable.Build(traptable.Spill)
		stores := 0
		for _, op := range ops {
			if op.Op == isa.OpSTW {
				stores++
			}
		}
		Expect(stores).To(Equal(17))
		Expect(ops[len(ops)-2].Op).To(Equal(isa.OpSAVED))
		Expect(ops[len(ops)-1].Op).To(Equal(isa.OpDONE))
	})

	It("builds a 16-load fill program ending in RESTORED then DONE", func() {
		ops := traptable.Build(traptable.Fill)
		loads := 0
		for _, op := range ops {
			if op.Op == isa.OpLDUW {
				loads++
			}
		}
		Expect(loads).To(Equal(16))
		Expect(ops[len(ops)-2].Op).To(Equal(isa.OpRESTORED))
	})
})

var _ = Describe("Table", func() {
	It("serves the spill and fill programs by kind", func() {
		tbl := traptable.NewTable(0xFFFF0000)
		Expect(tbl.Program(traptable.Spill)).To(HaveLen(19))
		Expect(tbl.Program(traptable.Fill)).To(HaveLen(18))
	})
})
