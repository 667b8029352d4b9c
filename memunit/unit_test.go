package memunit_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/memunit"
)

func ldInst(tag engine.Tag) *engine.Instance {
	return &engine.Instance{Tag: tag, AddrReady: true}
}

var alwaysOpen = func() bool { return true }

var _ = Describe("Unit (RC mode)", func() {
	var u *memunit.Unit

	BeforeEach(func() {
		u = memunit.New(memunit.RC, memunit.SpecStall, 8)
	})

	It("forwards a load from an older ready store at the same address", func() {
		st := memunit.Entry{Tag: 1, Inst: &engine.Instance{RdVal: 42}, Addr: 0x100, Size: 4, AddrKnown: true, StReady: true}
		Expect(u.AddStore(st)).To(BeTrue())

		ld := memunit.Entry{Tag: 2, Inst: ldInst(2), Addr: 0x100, Size: 4, AddrKnown: true}
		Expect(u.AddLoad(ld)).To(BeTrue())

		results := u.IssueLoads(alwaysOpen, false)
		Expect(results).To(HaveLen(1))
		Expect(results[0].Forwarded).To(BeTrue())
		Expect(results[0].ForwardTag).To(Equal(engine.Tag(1)))
	})

	It("stalls a load behind an ambiguous older store under SPEC_STALL", func() {
		st := memunit.Entry{Tag: 1, Inst: &engine.Instance{}, AddrKnown: false}
		u.AddStore(st)
		ld := memunit.Entry{Tag: 2, Inst: ldInst(2), Addr: 0x200, Size: 4, AddrKnown: true}
		u.AddLoad(ld)

		results := u.IssueLoads(alwaysOpen, false)
		Expect(results).To(BeEmpty())
	})

	It("issues speculatively under SPEC_LIMBO and kills on later overlap", func() {
		u := memunit.New(memunit.RC, memunit.SpecLimbo, 8)
		st := memunit.Entry{Tag: 1, Inst: &engine.Instance{}, AddrKnown: false}
		u.AddStore(st)
		ld := memunit.Entry{Tag: 2, Inst: ldInst(2), Addr: 0x300, Size: 4, AddrKnown: true}
		u.AddLoad(ld)

		results := u.IssueLoads(alwaysOpen, false)
		Expect(results).To(HaveLen(1))

		killed := u.SetAddress(1, 0x300, 4)
		Expect(killed).To(ConsistOf(engine.Tag(2)))
		Expect(u.Kills).To(Equal(int64(1)))
		Expect(u.Redos).To(Equal(int64(1)))
	})

	It("issues speculatively under SPEC_EXCEPT and flags SOFT_LIMBO on later overlap", func() {
		u := memunit.New(memunit.RC, memunit.SpecExcept, 8)
		st := memunit.Entry{Tag: 1, Inst: &engine.Instance{}, AddrKnown: false}
		u.AddStore(st)
		ldInstance := ldInst(2)
		ld := memunit.Entry{Tag: 2, Inst: ldInstance, Addr: 0x300, Size: 4, AddrKnown: true}
		u.AddLoad(ld)

		results := u.IssueLoads(alwaysOpen, false)
		Expect(results).To(HaveLen(1))

		killed := u.SetAddress(1, 0x300, 4)
		Expect(killed).To(ConsistOf(engine.Tag(2)))
		Expect(u.Kills).To(Equal(int64(1)))
		// Unlike SPEC_LIMBO, SPEC_EXCEPT never silently re-issues: it
		// stamps the live instance with SOFT_LIMBO so the active list can
		// be told (core.completeExec's job) and no redo is counted here.
		Expect(u.Redos).To(Equal(int64(0)))
		Expect(ldInstance.ExceptionCode).To(Equal(engine.ExceptSOFTLimbo))
	})

	It("only issues the head of the store queue", func() {
		s1 := memunit.Entry{Tag: 1, Inst: &engine.Instance{}, Addr: 0x10, Size: 4, AddrKnown: true, StReady: true}
		s2 := memunit.Entry{Tag: 2, Inst: &engine.Instance{}, Addr: 0x20, Size: 4, AddrKnown: true, StReady: true}
		u.AddStore(s1)
		u.AddStore(s2)

		results := u.IssueStores(alwaysOpen)
		Expect(results).To(HaveLen(1))
		Expect(results[0].Tag).To(Equal(engine.Tag(1)))
	})

	It("records a load's address once its address-generation completes", func() {
		ld := memunit.Entry{Tag: 1, Inst: ldInst(1), AddrKnown: false}
		u.AddLoad(ld)
		Expect(u.SetLoadAddress(1, 0x400, 4)).To(BeTrue())

		results := u.IssueLoads(alwaysOpen, false)
		Expect(results).To(HaveLen(1))
		Expect(results[0].SentToCache).To(BeTrue())
	})

	It("flushes younger entries from both queues on misprediction", func() {
		u.AddStore(memunit.Entry{Tag: 1, Inst: &engine.Instance{}, AddrKnown: true})
		u.AddStore(memunit.Entry{Tag: 3, Inst: &engine.Instance{}, AddrKnown: true})
		u.AddLoad(memunit.Entry{Tag: 2, Inst: ldInst(2)})
		u.AddLoad(memunit.Entry{Tag: 4, Inst: ldInst(4)})

		u.FlushFrom(3)
		Expect(u.NumAvail(true)).To(Equal(7))
		Expect(u.NumAvail(false)).To(Equal(7))
	})
})

var _ = Describe("Unit (SC/PC mode)", func() {
	var u *memunit.Unit

	BeforeEach(func() {
		u = memunit.New(memunit.SC, memunit.SpecStall, 8)
	})

	It("reports a store completion as a store, not a load, out of the unified MemQueue", func() {
		st := memunit.Entry{Tag: 1, Inst: &engine.Instance{}, Addr: 0x100, Size: 4, AddrKnown: true, StReady: true}
		ld := memunit.Entry{Tag: 2, Inst: ldInst(2), Addr: 0x200, Size: 4, AddrKnown: true}
		Expect(u.AddStore(st)).To(BeTrue())
		Expect(u.AddLoad(ld)).To(BeTrue())

		restart, isStore, ok := u.CompleteMemOp(1)
		Expect(ok).To(BeTrue())
		Expect(restart).To(BeFalse())
		Expect(isStore).To(BeTrue())

		restart, isStore, ok = u.CompleteMemOp(2)
		Expect(ok).To(BeTrue())
		Expect(restart).To(BeFalse())
		Expect(isStore).To(BeFalse())
	})
})

var _ = Describe("Membars", func() {
	It("blocks a load behind an SL fence until retired", func() {
		var m memunit.Membars
		m.Record(5, memunit.FlagSL)
		Expect(m.BlocksLoadIssue(10)).To(BeTrue())
		m.Retire(memunit.FlagSL)
		Expect(m.BlocksLoadIssue(10)).To(BeFalse())
	})
})
