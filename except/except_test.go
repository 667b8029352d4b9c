package except_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/except"
)

var _ = Describe("Recoverable", func() {
	It("treats WINTRAP and SYSTRAP as recoverable", func() {
		Expect(except.Recoverable(engine.ExceptWINTRAP)).To(BeTrue())
		Expect(except.Recoverable(engine.ExceptSYSTRAP)).To(BeTrue())
	})
	It("treats DIV0 and ILLEGAL as fatal", func() {
		Expect(except.Recoverable(engine.ExceptDIV0)).To(BeFalse())
		Expect(except.Recoverable(engine.ExceptILLEGAL)).To(BeFalse())
	})
})

var _ = Describe("Drain", func() {
	It("skips pre-drain for soft exceptions and finishes immediately", func() {
		d := except.NewDrain(engine.ExceptSOFTLimbo, 5, 2)
		Expect(d.Done()).To(BeTrue())
	})

	It("waits in pre-drain until outstanding stores clear for a hard exception", func() {
		d := except.NewDrain(engine.ExceptDIV0, 5, 2)
		Expect(d.Phase).To(Equal(except.PhasePreDrain))
		d.AdvancePreDrain(3)
		Expect(d.Phase).To(Equal(except.PhasePreDrain))
		d.AdvancePreDrain(0)
		Expect(d.Phase).To(Equal(except.PhaseFlushing))
	})

	It("paces active-list flushing at the configured rate", func() {
		d := except.NewDrain(engine.ExceptSEGV, 5, 2)
		d.AdvancePreDrain(0)
		d.AdvanceFlushing()
		Expect(d.TickActiveListFlush(5)).To(Equal(2))
		Expect(d.Phase).To(Equal(except.PhaseFlushingActiveList))
		Expect(d.TickActiveListFlush(2)).To(Equal(2))
		Expect(d.Phase).To(Equal(except.PhaseDispatch))
	})
})
