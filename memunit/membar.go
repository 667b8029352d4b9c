package memunit

import "github.com/rsimgroup/rsim/engine"

// tagWatermark tracks the earliest in-flight tag of one membar direction
// (SStag, LStag, SLtag, LLtag, or MEMISSUEtag in the original naming).
type tagWatermark struct {
	tag engine.Tag
	set bool
}

func (w *tagWatermark) clear() { w.set = false }

func (w *tagWatermark) observe(tag engine.Tag) {
	if !w.set || tag < w.tag {
		w.tag, w.set = tag, true
	}
}

// blocks reports whether a membar watermark at or before waiterTag
// prevents waiterTag from issuing/forwarding in that direction.
func (w *tagWatermark) blocks(waiterTag engine.Tag) bool {
	return w.set && w.tag < waiterTag
}

// Membars tracks the earliest tag of each fence direction, per spec 3's
// "Membar Descriptor": SS (store-store), LS (load-store), SL (store-load),
// LL (load-load), and MEMISSUE (blocks any reordering across issue).
type Membars struct {
	ss, ls, sl, ll, issue tagWatermark
}

// Record registers a membar instance's flags at tag, updating the
// earliest-tag watermark for every direction it fences.
func (m *Membars) Record(tag engine.Tag, flags MembarFlag) {
	if flags&FlagSS != 0 {
		m.ss.observe(tag)
	}
	if flags&FlagLS != 0 {
		m.ls.observe(tag)
	}
	if flags&FlagSL != 0 {
		m.sl.observe(tag)
	}
	if flags&FlagLL != 0 {
		m.ll.observe(tag)
	}
	if flags&FlagIssue != 0 {
		m.issue.observe(tag)
	}
}

// Retire drops a membar's watermark once every access of its direction(s)
// older than it has drained (spec 3: "A fence is retired from this set
// when all in-flight accesses of the relevant direction(s) are either
// older than it or drained").
func (m *Membars) Retire(flags MembarFlag) {
	if flags&FlagSS != 0 {
		m.ss.clear()
	}
	if flags&FlagLS != 0 {
		m.ls.clear()
	}
	if flags&FlagSL != 0 {
		m.sl.clear()
	}
	if flags&FlagLL != 0 {
		m.ll.clear()
	}
	if flags&FlagIssue != 0 {
		m.issue.clear()
	}
}

// BlocksLoadIssue reports whether an SL or LL or MEMISSUE fence older than
// loadTag must stall the load (it may still forward if only SL blocks
// issue and forwarding is a data-path operation, per the caller's
// discretion — memunit.IssueLoads treats forwarding and issuing
// identically here since both require a cache-port/store-queue slot).
func (m *Membars) BlocksLoadIssue(loadTag engine.Tag) bool {
	return m.sl.blocks(loadTag) || m.ll.blocks(loadTag) || m.issue.blocks(loadTag)
}

// BlocksStoreIssue reports whether an SS or LS or MEMISSUE fence older
// than storeTag must stall the store.
func (m *Membars) BlocksStoreIssue(storeTag engine.Tag) bool {
	return m.ss.blocks(storeTag) || m.ls.blocks(storeTag) || m.issue.blocks(storeTag)
}
