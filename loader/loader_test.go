package loader_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/isa"
	"github.com/rsimgroup/rsim/loader"
)

var _ = Describe("Program", func() {
	It("fetches instructions by PC and reports misses past the stream", func() {
		code := []isa.StaticInstruction{
			{Op: isa.OpADD, PC: 0x1000},
			{Op: isa.OpSUB, PC: 0x1004},
		}
		prog := loader.New(code, 0x1000, 0x7fff0000, 8)

		in, ok := prog.Fetch(0x1000)
		Expect(ok).To(BeTrue())
		Expect(in.Op).To(Equal(isa.OpADD))

		_, ok = prog.Fetch(0x2000)
		Expect(ok).To(BeFalse())

		Expect(prog.Len()).To(Equal(2))
		Expect(prog.EntryPoint).To(Equal(uint64(0x1000)))
		Expect(prog.InitialSP).To(Equal(uint64(0x7fff0000)))
		Expect(prog.Windows).To(Equal(8))
	})
})
