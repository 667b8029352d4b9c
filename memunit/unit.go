package memunit

import "github.com/rsimgroup/rsim/engine"

// Unit is the memory-disambiguation unit for one core. Under RC it keeps
// separate LoadQueue/StoreQueue; under SC/PC it keeps a single unified
// MemQueue, selected by Consistency at construction (spec 4.3).
type Unit struct {
	Mode   Consistency
	Policy AmbigPolicy

	loadQ *engine.CircQ[Entry] // RC only
	storeQ *engine.CircQ[Entry] // RC only
	memQ  *engine.CircQ[Entry] // SC/PC only

	membars Membars

	// ambiguous-store bookkeeping, auxiliary to the StoreQueue/MemQueue.
	ambigStores map[engine.Tag]bool

	SpeculativeLoadsPastMembars bool
	NonBlockingWrites           bool

	Limbos, Unlimbos, Redos, Kills int64
}

// New creates a memory unit bounded to maxOps in-flight accesses per
// queue family (spec 3: "Capacity per queue = MAX_MEM_OPS").
func New(mode Consistency, policy AmbigPolicy, maxOps int) *Unit {
	u := &Unit{Mode: mode, Policy: policy, ambigStores: make(map[engine.Tag]bool)}
	if mode == RC {
		u.loadQ = engine.NewCircQ[Entry](maxOps)
		u.storeQ = engine.NewCircQ[Entry](maxOps)
	} else {
		u.memQ = engine.NewCircQ[Entry](maxOps)
	}
	return u
}

// AddLoad inserts a load (or software prefetch riding the load path) at
// the tail of the appropriate queue. Reports false if full (spec 4.1's
// "memory queue full" stall kind).
func (u *Unit) AddLoad(e Entry) bool {
	e.IsStore = false
	if u.Mode == RC {
		return u.loadQ.Insert(e)
	}
	return u.memQ.Insert(e)
}

// AddStore inserts a store at the tail of the appropriate queue. If addr
// is not yet known (ambiguous), it is also tracked in the ambiguous-store
// set until SetAddress resolves it.
func (u *Unit) AddStore(e Entry) bool {
	e.IsStore = true
	var ok bool
	if u.Mode == RC {
		ok = u.storeQ.Insert(e)
	} else {
		ok = u.memQ.Insert(e)
	}
	if ok && !e.AddrKnown {
		u.ambigStores[e.Tag] = true
	}
	return ok
}

func (u *Unit) queueFor(isStore bool) *engine.CircQ[Entry] {
	if u.Mode != RC {
		return u.memQ
	}
	if isStore {
		return u.storeQ
	}
	return u.loadQ
}

func (u *Unit) findEntry(tag engine.Tag, isStore bool) (q *engine.CircQ[Entry], idx int, ok bool) {
	q = u.queueFor(isStore)
	idx, ok = q.Search(func(e Entry) int { return int(e.Tag - tag) })
	return
}

// RecordMembar registers a MEMBAR instance's fence flags.
func (u *Unit) RecordMembar(tag engine.Tag, flags MembarFlag) { u.membars.Record(tag, flags) }

// RetireMembar drops a fence's watermark once it graduates.
func (u *Unit) RetireMembar(flags MembarFlag) { u.membars.Retire(flags) }

// IssueResult reports the outcome of attempting to issue one entry.
type IssueResult struct {
	Tag       engine.Tag
	Forwarded bool
	ForwardTag engine.Tag
	SentToCache bool
	Prefetch  bool
}

// IssueLoads scans the load queue (or unified MemQueue under RC-equivalent
// speculative-load handling) oldest-first, attempting to forward from an
// older store, issue speculatively past an ambiguous store per Policy, or
// send to the cache port, per spec 4.3's IssueLoads algorithm.
// portAvail is polled before any cache-port-consuming action; staticSched
// stops the scan at the first address-not-ready load (matching the spec's
// "under static scheduling, stop the scan" rule).
func (u *Unit) IssueLoads(portAvail func() bool, staticSched bool) []IssueResult {
	q := u.queueFor(false)
	var results []IssueResult

	q.Each(func(i int, ld Entry) bool {
		if ld.IsStore || ld.Issued {
			return true
		}
		// Under SC only the oldest memory op in the MemQueue may issue;
		// software prefetches are exempt.
		if u.Mode == SC && i > 0 && !ld.IsPrefetch {
			return false
		}
		if !ld.Inst.AddrReady {
			if staticSched {
				return false
			}
			return true
		}
		if u.membars.BlocksLoadIssue(ld.Tag) {
			return true
		}

		if fwd, fwdTag, matched := u.tryForward(ld); matched {
			ld.Issued = true
			ld.Forwarded = true
			ld.ForwardFrom = fwdTag
			ld.Inst.RdVal = fwd
			q.SetElt(i, ld)
			results = append(results, IssueResult{Tag: ld.Tag, Forwarded: true, ForwardTag: fwdTag})
			return true
		}

		if u.blockedByAmbiguousStore(ld) {
			switch u.Policy {
			case SpecStall:
				return true
			case SpecLimbo, SpecExcept:
				ld.Limbo = true
			}
		}

		if !portAvail() {
			return true
		}
		ld.Issued = true
		q.SetElt(i, ld)
		results = append(results, IssueResult{Tag: ld.Tag, SentToCache: true})
		return true
	})
	return results
}

// tryForward walks stores older than ld looking for an exact address
// match with ready data (store-to-load forwarding, spec 4.3 step 3).
func (u *Unit) tryForward(ld Entry) (value uint64, fromTag engine.Tag, matched bool) {
	sq := u.queueFor(true)
	var found bool
	var result Entry
	sq.Each(func(_ int, st Entry) bool {
		if st.Tag >= ld.Tag {
			return false
		}
		if !st.AddrKnown || !st.StReady {
			return true
		}
		if MemMatch(st.Addr, st.Size, ld.Addr, ld.Size) {
			found, result = true, st
		}
		return true
	})
	if !found {
		return 0, 0, false
	}
	return result.Inst.RdVal, result.Tag, true
}

// blockedByAmbiguousStore reports whether an older store with unknown
// address could alias ld.
func (u *Unit) blockedByAmbiguousStore(ld Entry) bool {
	if len(u.ambigStores) == 0 {
		return false
	}
	sq := u.queueFor(true)
	blocked := false
	sq.Each(func(_ int, st Entry) bool {
		if st.Tag >= ld.Tag {
			return false
		}
		if !st.AddrKnown && u.ambigStores[st.Tag] {
			blocked = true
		}
		return true
	})
	return blocked
}

// IssueStores attempts to issue the head of the store queue (or the head
// of the unified MemQueue, when that head is a store), per spec 4.3's IssueStores:
// only the head may issue under RC (after mark_stores_ready has flagged it
// ready), subject to membar ordering and cache-port availability.
func (u *Unit) IssueStores(portAvail func() bool) []IssueResult {
	q := u.queueFor(true)
	var results []IssueResult

	head, ok := q.PeekHead()
	if !ok || head.Issued || !head.StReady || !head.AddrKnown {
		return nil
	}
	if u.membars.BlocksStoreIssue(head.Tag) {
		return nil
	}
	if !portAvail() {
		return nil
	}
	head.Issued = true
	q.SetElt(0, head)
	delete(u.ambigStores, head.Tag)
	results = append(results, IssueResult{Tag: head.Tag, SentToCache: true})
	return results
}

// MarkStoreReady flags a store ready to graduate (the two-stage
// newst/st_ready classification of spec 3's supplemented "three-way store
// classification").
func (u *Unit) MarkStoreReady(tag engine.Tag) bool {
	q, idx, ok := u.findEntry(tag, true)
	if !ok {
		return false
	}
	e, _ := q.PeekElt(idx)
	e.StReady = true
	q.SetElt(idx, e)
	return true
}

// SetAddress resolves a previously ambiguous store's address and runs
// Disambiguate against younger already-issued loads (spec 4.3).
func (u *Unit) SetAddress(tag engine.Tag, addr uint64, size uint8) []engine.Tag {
	q, idx, ok := u.findEntry(tag, true)
	if !ok {
		return nil
	}
	e, _ := q.PeekElt(idx)
	e.Addr, e.Size, e.AddrKnown = addr, size, true
	q.SetElt(idx, e)
	delete(u.ambigStores, tag)
	return u.Disambiguate(tag, addr, size)
}

// SetLoadAddress records a load's computed address once its address
// generation unit completes. Loads carry no ambiguity of their own to
// resolve, so unlike SetAddress this never triggers Disambiguate.
func (u *Unit) SetLoadAddress(tag engine.Tag, addr uint64, size uint8) bool {
	q, idx, ok := u.findEntry(tag, false)
	if !ok {
		return false
	}
	e, _ := q.PeekElt(idx)
	e.Addr, e.Size, e.AddrKnown = addr, size, true
	q.SetElt(idx, e)
	return true
}

// Disambiguate walks loads younger than storeTag; any that already issued
// past the now-resolved ambiguous store and overlap it must be killed and
// restarted (spec 4.3's Disambiguate).
func (u *Unit) Disambiguate(storeTag engine.Tag, addr uint64, size uint8) []engine.Tag {
	lq := u.queueFor(false)
	var killed []engine.Tag

	lq.Each(func(i int, ld Entry) bool {
		if ld.Tag <= storeTag || !ld.Issued {
			return true
		}
		if !overlap(ld.Addr, ld.Size, addr, size) {
			if ld.Limbo {
				u.Unlimbos++
				ld.Limbo = false
				lq.SetElt(i, ld)
			}
			return true
		}
		switch u.Policy {
		case SpecStall:
			panic("memunit: disambiguate-kill observed under SPEC_STALL")
		case SpecLimbo:
			ld.Issued, ld.Limbo = false, false
			u.Kills++
			u.Redos++
			lq.SetElt(i, ld)
			killed = append(killed, ld.Tag)
		case SpecExcept:
			ld.Inst.ExceptionCode = engine.ExceptSOFTLimbo
			u.Kills++
			lq.SetElt(i, ld)
			killed = append(killed, ld.Tag)
		}
		return true
	})
	return killed
}

// CompleteMemOp distinguishes loads and stores as spec 4.3's
// CompleteMemOp: a soft-exception-carrying or still-conflicted load
// restarts; a globally-performed non-RMW store frees its virtual-store-
// buffer resident; otherwise a load's destination writes and wakeups fire
// (signaled to the caller via the returned ok flag so core can drive
// register completion).
func (u *Unit) CompleteMemOp(tag engine.Tag) (restart bool, isStore bool, ok bool) {
	for _, isSt := range [2]bool{false, true} {
		q, idx, found := u.findEntry(tag, isSt)
		if !found {
			continue
		}
		e, _ := q.PeekElt(idx)
		if !e.IsStore {
			if e.Inst.ExceptionCode == engine.ExceptSOFTLimbo ||
				e.Inst.ExceptionCode == engine.ExceptSOFTSLCohe ||
				e.Inst.ExceptionCode == engine.ExceptSOFTSLRepl {
				e.Issued, e.Inst.ExceptionCode = false, engine.ExceptOK
				q.SetElt(idx, e)
				return true, false, true
			}
			if e.Limbo {
				return true, false, true
			}
		}
		e.Global = true
		q.SetElt(idx, e)
		return false, e.IsStore, true
	}
	return false, false, false
}

// Remove drops tag's entry once retirement/graduation is done with it.
func (u *Unit) Remove(tag engine.Tag, isStore bool) bool {
	q, idx, ok := u.findEntry(tag, isStore)
	if !ok {
		return false
	}
	return q.DeleteElt(idx)
}

// FlushFrom drops every entry with Tag >= tag from both queue families
// (misprediction/exception recovery), clearing any ambiguous-store
// tracking for discarded stores.
func (u *Unit) FlushFrom(tag engine.Tag) {
	for _, isSt := range [2]bool{false, true} {
		q := u.queueFor(isSt)
		for {
			last, ok := q.PeekTail()
			if !ok || last.Tag < tag {
				break
			}
			q.DeleteFromTail()
			delete(u.ambigStores, last.Tag)
		}
		if u.Mode != RC {
			break // unified queue already covers both directions
		}
	}
}

// NumAvail reports remaining capacity in the relevant queue for a
// would-be memory instance (used by core's decode-time check for
// StallMemQueue).
func (u *Unit) NumAvail(isStore bool) int {
	q := u.queueFor(isStore)
	return q.Cap() - q.Len()
}
