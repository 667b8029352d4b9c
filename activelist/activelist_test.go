package activelist_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/activelist"
	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/rename"
)

var _ = Describe("List", func() {
	var l *activelist.List

	BeforeEach(func() {
		l = activelist.New(4)
	})

	It("reports NumAvail/NumElements/NumEntries consistently", func() {
		Expect(l.NumAvail()).To(Equal(4))
		Expect(l.Add(1, activelist.Entry{OldPhysical: 1}, activelist.Entry{OldPhysical: 2})).To(BeTrue())
		Expect(l.NumElements()).To(Equal(1))
		Expect(l.NumEntries()).To(Equal(2))
		Expect(l.NumAvail()).To(Equal(3))
	})

	It("refuses to add once full", func() {
		for i := engine.Tag(0); i < 4; i++ {
			Expect(l.Add(i, activelist.Entry{}, activelist.Entry{})).To(BeTrue())
		}
		Expect(l.Full()).To(BeTrue())
		Expect(l.Add(5, activelist.Entry{}, activelist.Entry{})).To(BeFalse())
	})

	It("only retires a head pair once both entries are done and past lookahead", func() {
		l.Add(1, activelist.Entry{OldPhysical: 10, File: rename.FileInt}, activelist.Entry{OldPhysical: 20, File: rename.FileInt})
		_, ready, hasExc := l.RemoveHead(5, 2)
		Expect(ready).To(BeFalse())
		Expect(hasExc).To(BeFalse())

		l.MarkDone(1, engine.ExceptOK, 3)
		res, ready, hasExc := l.RemoveHead(5, 2)
		Expect(ready).To(BeTrue())
		Expect(hasExc).To(BeFalse())
		Expect(res.OldDest).To(Equal(int32(10)))
		Expect(res.OldCC).To(Equal(int32(20)))
	})

	It("stops retirement and reports an exception when the head is flagged", func() {
		l.Add(1, activelist.Entry{}, activelist.Entry{})
		l.MarkDone(1, engine.ExceptOK, 0)
		l.FlagException(1, engine.ExceptSOFTLimbo)
		_, ready, hasExc := l.RemoveHead(0, 0)
		Expect(ready).To(BeFalse())
		Expect(hasExc).To(BeTrue())
	})

	It("tail-flushes everything at or after a mispredicted tag", func() {
		l.Add(1, activelist.Entry{}, activelist.Entry{})
		l.Add(2, activelist.Entry{}, activelist.Entry{})
		l.Add(3, activelist.Entry{}, activelist.Entry{})
		flushed := l.FlushFrom(2)
		Expect(flushed).To(HaveLen(2))
		Expect(l.NumElements()).To(Equal(1))
	})
})

var _ = Describe("TagLookup", func() {
	It("finds instances by tag via binary search", func() {
		tl := activelist.NewTagLookup(8)
		for _, tag := range []engine.Tag{1, 2, 3, 4} {
			tl.Insert(&engine.Instance{Tag: tag})
		}
		in, ok := tl.Lookup(3)
		Expect(ok).To(BeTrue())
		Expect(in.Tag).To(Equal(engine.Tag(3)))

		_, ok = tl.Lookup(99)
		Expect(ok).To(BeFalse())
	})

	It("flushes younger instances tail-first", func() {
		tl := activelist.NewTagLookup(8)
		for _, tag := range []engine.Tag{1, 2, 3} {
			tl.Insert(&engine.Instance{Tag: tag})
		}
		flushed := tl.FlushFrom(2)
		Expect(flushed).To(HaveLen(2))
		Expect(flushed[0].Tag).To(Equal(engine.Tag(3)))
		Expect(flushed[1].Tag).To(Equal(engine.Tag(2)))
		Expect(tl.Len()).To(Equal(1))
	})
})
