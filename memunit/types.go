// Package memunit implements the memory-disambiguation unit of spec 4.3:
// the per-mode LoadQueue/StoreQueue or unified MemQueue, the membar
// descriptor set, ambiguous-store tracking, and the issue/disambiguate/
// complete/prefetch operations that enforce RC, SC, or PC ordering over
// speculative loads and store-to-load forwarding.
package memunit

import "github.com/rsimgroup/rsim/engine"

// Consistency selects the ordering model, fixed at build time per spec 4.3.
type Consistency uint8

const (
	RC Consistency = iota // weak/release: separate LoadQueue + StoreQueue
	SC                    // sequential consistency: single MemQueue, strict head-only issue
	PC                    // processor consistency: single MemQueue, TSO store ordering
)

// AmbigPolicy selects how a load behaves when an older store's address is
// still unknown (spec 4.3's ambiguous-store policy).
type AmbigPolicy uint8

const (
	SpecStall  AmbigPolicy = iota // stall the load until the store resolves
	SpecLimbo                     // issue but mark limbo; invalidate on overlap
	SpecExcept                    // issue speculatively; flag SOFT_LIMBO on overlap
)

// MembarFlag mirrors isa.MemBarFlags for the subset the memory unit tracks
// earliest-tag watermarks for.
type MembarFlag uint8

const (
	FlagSS MembarFlag = 1 << iota
	FlagLS
	FlagSL
	FlagLL
	FlagIssue
)

// Entry is one in-flight memory operation — a load, a store, or a
// software prefetch riding the load path.
type Entry struct {
	Tag         engine.Tag
	Inst        *engine.Instance
	IsStore     bool
	IsRMW       bool
	IsPrefetch  bool
	Exclusive   bool // prefetch flavor: exclusive vs shared
	Addr        uint64
	Size        uint8
	AddrKnown   bool // false == ambiguous: address not yet computed
	Issued      bool
	ForwardFrom engine.Tag
	Forwarded   bool
	Limbo       bool
	StReady     bool // store marked ready to graduate (mark_stores_ready)
	Global      bool // globally performed
}

// overlap reports whether two memory accesses touch any common byte.
func overlap(addrA uint64, sizeA uint8, addrB uint64, sizeB uint8) bool {
	endA := addrA + uint64(sizeA)
	endB := addrB + uint64(sizeB)
	return addrA < endB && addrB < endA
}

// MemMatch reports whether a store of (addr,size) can forward directly
// into a load of (addr,size) — same address, load size no larger than the
// store's (the STW<->LDUW / STDF<->LDUW narrowing cases named in spec
// 4.3 reduce to "load fully contained in store").
func MemMatch(storeAddr uint64, storeSize uint8, loadAddr uint64, loadSize uint8) bool {
	return loadAddr >= storeAddr && loadAddr+uint64(loadSize) <= storeAddr+uint64(storeSize)
}
