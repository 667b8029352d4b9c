package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/cachebus"
	"github.com/rsimgroup/rsim/config"
	"github.com/rsimgroup/rsim/core"
	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/isa"
	"github.com/rsimgroup/rsim/loader"
)

func newCache() *cachebus.Cache {
	return cachebus.New(cachebus.DefaultL1DConfig(), cachebus.NewFlatMemory(1<<20))
}

var _ = Describe("Processor", func() {
	It("renames a same-register RAW pair without deadlocking", func() {
		// ADD r1 = r1 + 1; ADD r2 = r1 + 1. The first instruction's source
		// and destination share logical register 1: lookupSources must
		// resolve it against the pre-rename mapping or the instance waits
		// on its own not-yet-produced result forever.
		code := []isa.StaticInstruction{
			{Op: isa.OpADD, PC: 0x1000, Rs1: 1, Rs1Class: isa.RegINT, Rd: 1, RdClass: isa.RegINT, HasImm: true, Imm: 1},
			{Op: isa.OpADD, PC: 0x1004, Rs1: 1, Rs1Class: isa.RegINT, Rd: 2, RdClass: isa.RegINT, HasImm: true, Imm: 1},
		}
		prog := loader.New(code, 0x1000, 0x7fff0000, 8)
		p := core.NewProcessor(config.Default(), prog, newCache())

		for i := 0; i < 10 && p.Stats.Graduates < 2; i++ {
			p.Tick()
		}

		Expect(p.Stats.Graduates).To(Equal(int64(2)))
	})

	It("forwards a store's value to a later load at the same address", func() {
		code := []isa.StaticInstruction{
			{Op: isa.OpSTW, PC: 0x1000, Rs1: 3, Rs1Class: isa.RegINT, Size: 4},
			{Op: isa.OpLDUW, PC: 0x1004, Rs1: 4, Rs1Class: isa.RegINT, Rd: 5, RdClass: isa.RegINT, Size: 4},
		}
		prog := loader.New(code, 0x1000, 0x7fff0000, 8)
		p := core.NewProcessor(config.Default(), prog, newCache())

		p.Tick() // cycle 1: fetch both, issue address generation

		st, ok := p.Instance(0)
		Expect(ok).To(BeTrue())
		st.Addr, st.RdVal = 0x2000, 0x2a

		ld, ok := p.Instance(1)
		Expect(ok).To(BeTrue())
		ld.Addr = 0x2000

		for i := 0; i < 10 && p.Stats.Graduates < 2; i++ {
			p.Tick()
		}

		Expect(p.Stats.Graduates).To(Equal(int64(2)))
		Expect(p.Stats.VSBForwards).To(Equal(int64(1)))
	})

	It("flushes younger state and redirects fetch on a branch misprediction", func() {
		code := []isa.StaticInstruction{
			{Op: isa.OpBicc, PC: 0x1000, IsCondBranch: true, StaticPrediction: false, HasImm: true, Imm: 0x1000},
			{Op: isa.OpADD, PC: 0x1008, Rs1: 1, Rs1Class: isa.RegINT, Rd: 1, RdClass: isa.RegINT, HasImm: true, Imm: 1},
		}
		prog := loader.New(code, 0x1000, 0x7fff0000, 8)
		cfg := config.Default()
		cfg.Prediction = config.PredictionStatic // deterministic: predict StaticPrediction exactly
		p := core.NewProcessor(cfg, prog, newCache())

		p.Tick() // cycle 1: fetch branch (predicted not-taken -> falls to 0x1008) + the ADD there

		br, ok := p.Instance(0)
		Expect(ok).To(BeTrue())
		br.ActualTaken = true
		br.NewPC = 0x2000

		p.Tick() // cycle 2: branch resolves, mispredicted, flushes tag 1 and redirects fetch

		Expect(p.Stats.BpbBadPredicts).To(Equal(int64(1)))
		Expect(p.Stats.Graduates).To(Equal(int64(1))) // only the branch; the ADD was flushed
		_, stillThere := p.Instance(1)
		Expect(stillThere).To(BeFalse())
	})

	It("halts and records the exit code on an exiting syscall trap", func() {
		code := []isa.StaticInstruction{
			{Op: isa.OpTicc, PC: 0x1000, TrapNumber: 0},
		}
		prog := loader.New(code, 0x1000, 0x7fff0000, 8)
		p := core.NewProcessor(config.Default(), prog, newCache())

		p.Tick() // cycle 1: fetch, issue

		in, ok := p.Instance(0)
		Expect(ok).To(BeTrue())
		in.ExceptionCode = engine.ExceptSYSTRAP
		in.RdVal = 42

		p.Tick() // cycle 2: completes, graduation finds the exception, drains, dispatches

		Expect(p.Halted()).To(BeTrue())
		Expect(p.ExitCode()).To(Equal(int64(42)))
	})
})
