package branch_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/branch"
	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/isa"
	"github.com/rsimgroup/rsim/rename"
)

var _ = Describe("Table", func() {
	It("saturates toward taken after repeated taken outcomes", func() {
		t := branch.NewTable(branch.Bimodal, 16)
		pc := uint64(0x1000)
		for i := 0; i < 3; i++ {
			t.Update(pc, false, true)
		}
		Expect(t.Predict(pc, false)).To(BeTrue())
	})

	It("starts weakly-not-taken", func() {
		t := branch.NewTable(branch.Bimodal, 16)
		Expect(t.Predict(0x2000, false)).To(BeFalse())
	})
})

var _ = Describe("RAS", func() {
	It("predicts the most recently pushed return address", func() {
		r := branch.NewRAS(4)
		r.Push(0x100)
		r.Push(0x200)
		addr, ok := r.Pop()
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(uint64(0x200)))
		addr, ok = r.Pop()
		Expect(addr).To(Equal(uint64(0x100)))
	})

	It("reports failure on an empty stack", func() {
		r := branch.NewRAS(4)
		_, ok := r.Pop()
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Classify", func() {
	It("classifies a conditional branch", func() {
		Expect(branch.Classify(&isa.StaticInstruction{Op: isa.OpBicc, IsCondBranch: true})).To(Equal(branch.XferConditional))
	})
	It("classifies RETURN as predicted-by-RAS", func() {
		Expect(branch.Classify(&isa.StaticInstruction{Op: isa.OpRETURN})).To(Equal(branch.XferReturn))
	})
	It("classifies JMPL as an unpredicted indirect", func() {
		Expect(branch.Classify(&isa.StaticInstruction{Op: isa.OpJMPL})).To(Equal(branch.XferIndirectUnpredicted))
	})
})

var _ = Describe("Unit.Decide", func() {
	It("pushes a shadow snapshot for a conditional branch", func() {
		u := branch.New(branch.Bimodal, 16, 4)
		ru := rename.NewUnit(32, 40, 32, 40, 4)
		in := &engine.Instance{
			Tag: 1, PC: 0x1000, NPC: 0x1004,
			Code: &isa.StaticInstruction{Op: isa.OpBicc, IsCondBranch: true, Imm: 0x40},
		}
		dec, ok := u.Decide(in, ru)
		Expect(ok).To(BeTrue())
		Expect(dec.Kind).To(Equal(branch.XferConditional))
		Expect(ru.Shadow.Len()).To(Equal(1))
	})

	It("does not push a shadow snapshot for an unconditional direct branch", func() {
		u := branch.New(branch.Bimodal, 16, 4)
		ru := rename.NewUnit(32, 40, 32, 40, 4)
		in := &engine.Instance{
			Tag: 1, PC: 0x1000,
			Code: &isa.StaticInstruction{Op: isa.OpBA, IsUncondBranch: true, Imm: 0x40},
		}
		_, ok := u.Decide(in, ru)
		Expect(ok).To(BeTrue())
		Expect(ru.Shadow.Len()).To(Equal(0))
	})
})
