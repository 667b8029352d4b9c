// Package cachebus defines the asynchronous data-only contract between the
// memory unit and the external cache hierarchy (spec 5/6), plus a
// reference in-memory cache used so tests can exercise the core without a
// real memory subsystem. The cache hierarchy proper is out of scope (spec
// 1's Non-goals) — this package is a stand-in collaborator, grounded on
// the teacher's timing/cache package and adopting the same
// github.com/sarchlab/akita/v4/mem/cache directory/LRU-victim
// abstraction it uses.
package cachebus

import "github.com/rsimgroup/rsim/engine"

// AccessKind is the request's access kind (spec 6).
type AccessKind uint8

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessRMW
	AccessPrefetchSharedL1
	AccessPrefetchExclusiveL1
	AccessPrefetchSharedL2
	AccessPrefetchExclusiveL2
)

// MissKind classifies a completion (spec 6).
type MissKind uint8

const (
	MissL1Hit MissKind = iota
	MissL2Hit
	MissLocalMem
	MissRemoteMem
	MissLatePrefetch
)

// Request is handed to the cache input port by IssueOp. It may be
// rejected if the port is full, in which case the caller must stall
// (spec 4.3 step 5).
type Request struct {
	Addr  uint64
	Size  int
	Kind  AccessKind
	Tag   engine.Tag
	Inst  *engine.Instance
	Data  uint64 // write/RMW value
}

// Completion is delivered asynchronously, inserted by the cache into a
// MemDoneHeap-equivalent keyed by completion cycle (spec 5).
type Completion struct {
	Tag           engine.Tag
	Miss          MissKind
	GlobalPerform bool
	Data          uint64
	Cycle         int64
}

// Port is the processor-to-cache boundary contract (spec 6's "In-memory
// exchanges with the cache port").
type Port interface {
	// Submit hands req to the cache. ok is false if the input port is
	// full and the caller must stall.
	Submit(req Request, currentCycle int64) (ok bool)
	// Poll drains completions scheduled at or before cycle.
	Poll(cycle int64) []Completion
}
