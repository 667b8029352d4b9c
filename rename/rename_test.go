package rename_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/isa"
	"github.com/rsimgroup/rsim/rename"
)

func addInst(tag engine.Tag, lrd uint8, class isa.RegClass) *engine.Instance {
	return &engine.Instance{
		Tag:  tag,
		LRd:  lrd,
		Code: &isa.StaticInstruction{Op: isa.OpADD, RdClass: class},
	}
}

var _ = Describe("Unit.Rename", func() {
	var u *rename.Unit

	BeforeEach(func() {
		u = rename.NewUnit(32, 40, 32, 40, 4)
	})

	It("allocates a destination register and installs the mapping", func() {
		in := addInst(1, 5, isa.RegINT)
		res, kind, ok := u.Rename(in)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(engine.StallNone))
		Expect(res.NewPRd).NotTo(Equal(int32(5)))
		Expect(u.Int.Lookup(5)).To(Equal(res.NewPRd))
		Expect(u.Int.IsBusy(res.NewPRd)).To(BeTrue())
	})

	It("skips allocation for the zero destination register", func() {
		in := addInst(1, rename.ZeroReg, isa.RegINT)
		res, _, ok := u.Rename(in)
		Expect(ok).To(BeTrue())
		Expect(res.NewPRd).To(Equal(int32(-1)))
	})

	It("allocates a second physical register for an INT_PAIR destination", func() {
		in := addInst(1, 4, isa.RegINTPair)
		res, _, ok := u.Rename(in)
		Expect(ok).To(BeTrue())
		Expect(res.HasPair).To(BeTrue())
		Expect(u.Int.Lookup(5)).To(Equal(res.NewPRdp))
	})

	It("reports free-list exhaustion as a classified stall", func() {
		u := rename.NewUnit(4, 5, 4, 5, 4)
		_, _, ok := u.Rename(addInst(1, 1, isa.RegINT))
		Expect(ok).To(BeTrue())
		_, kind, ok := u.Rename(addInst(2, 2, isa.RegINT))
		Expect(ok).To(BeFalse())
		Expect(kind).To(Equal(engine.StallFreeListInt))
	})

	It("frees the old mapping on retire, not the newly produced one", func() {
		in := addInst(1, 5, isa.RegINT)
		res, _, _ := u.Rename(in)
		before := u.IntFree.Avail()
		u.Retire(res.OldPRd, rename.FileInt)
		Expect(u.IntFree.Avail()).To(Equal(before + 1))
	})
})

var _ = Describe("ShadowStack", func() {
	It("restores a snapshot and flushes younger entries on misprediction", func() {
		intMap := rename.NewMap(8, 16)
		fpMap := rename.NewMap(8, 16)
		stack := rename.NewShadowStack(4)

		Expect(stack.Push(10, intMap, fpMap)).To(BeTrue())
		intMap.Rename(3, 9)
		Expect(stack.Push(20, intMap, fpMap)).To(BeTrue())
		intMap.Rename(3, 11)

		Expect(stack.BadPrediction(10, intMap, fpMap)).To(BeTrue())
		Expect(intMap.Lookup(3)).To(Equal(int32(3)))
		Expect(stack.Len()).To(Equal(0))
	})

	It("drops the snapshot on good prediction without restoring", func() {
		intMap := rename.NewMap(8, 16)
		fpMap := rename.NewMap(8, 16)
		stack := rename.NewShadowStack(4)
		stack.Push(1, intMap, fpMap)
		Expect(stack.GoodPrediction(1)).To(BeTrue())
		Expect(stack.Len()).To(Equal(0))
	})
})
