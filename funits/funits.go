// Package funits implements the functional-unit pools and completion
// scheduler of spec 4.4: per-kind unit counts, latency/repeat tables, and
// the Running/FreeingUnits/DoneHeap/MemDoneHeap event heaps.
package funits

import "github.com/rsimgroup/rsim/engine"

// Kind is one of the four functional-unit classes.
type Kind uint8

const (
	ALU Kind = iota
	FPU
	ADDR
	MEM
	numKinds
)

// Spec is one unit kind's static timing: how many instances of the unit
// exist, how many cycles an operation takes, and how many cycles must
// elapse before the unit can accept its next operation (repeat rate).
type Spec struct {
	Count  int
	Latency int
	Repeat  int
}

// Pool tracks per-kind unit specs and free-unit counts, and schedules
// completion/free events via the shared engine.Heap.
type Pool struct {
	specs [numKinds]Spec
	free  [numKinds]int

	running      *engine.Heap[RunningEvent]
	memDone      *engine.Heap[RunningEvent]
	freeingUnits *engine.Heap[FreeEvent]

	// FastMode collapses latency/repeat to 1 for every kind (spec 4.4:
	// "Fast-unit mode collapses latencies/repeats to 1").
	FastMode bool
}

// RunningEvent is a scheduled completion: the instance finishes at Cycle.
type RunningEvent struct {
	Cycle int64
	Tag   engine.Tag
	Inst  *engine.Instance
}

// FreeEvent returns a unit of Kind to the free pool at Cycle.
type FreeEvent struct {
	Cycle int64
	Kind  Kind
}

func cycleLess(a, b RunningEvent) bool {
	if a.Cycle != b.Cycle {
		return a.Cycle < b.Cycle
	}
	return a.Tag < b.Tag
}

func freeLess(a, b FreeEvent) bool { return a.Cycle < b.Cycle }

// NewPool creates a functional-unit pool from per-kind specs.
func NewPool(specs [4]Spec) *Pool {
	p := &Pool{
		running:      engine.NewHeap[RunningEvent](cycleLess),
		memDone:      engine.NewHeap[RunningEvent](cycleLess),
		freeingUnits: engine.NewHeap[FreeEvent](freeLess),
	}
	for k := Kind(0); k < numKinds; k++ {
		p.specs[k] = specs[k]
		p.free[k] = specs[k].Count
	}
	return p
}

func (p *Pool) latencyRepeat(k Kind) (latency, repeat int) {
	if p.FastMode {
		return 1, 1
	}
	return p.specs[k].Latency, p.specs[k].Repeat
}

// Avail reports how many units of kind k are currently free.
func (p *Pool) Avail(k Kind) int { return p.free[k] }

// Issue allocates one unit of kind k for inst at currentCycle, scheduling
// its completion (Running for ALU/FPU/ADDR, MemDoneHeap for MEM — memory
// completions arrive from the cache port instead of a fixed latency, but
// a non-memory-access use of the MEM unit kind, e.g. address generation,
// still follows the fixed-latency path) and its repeat-rate-delayed
// free-unit event. Reports false if no unit of kind k is free.
func (p *Pool) Issue(k Kind, inst *engine.Instance, tag engine.Tag, currentCycle int64, memCompletion bool) bool {
	if p.free[k] == 0 {
		return false
	}
	p.free[k]--
	latency, repeat := p.latencyRepeat(k)

	ev := RunningEvent{Cycle: currentCycle + int64(latency), Tag: tag, Inst: inst}
	if k == MEM && memCompletion {
		p.memDone.Insert(ev)
	} else {
		p.running.Insert(ev)
	}
	p.freeingUnits.Insert(FreeEvent{Cycle: currentCycle + int64(repeat), Kind: k})
	return true
}

// DrainCompletions pops every Running (non-memory) completion due at or
// before cycle, invoking fn for each, in (cycle, tag) order.
func (p *Pool) DrainCompletions(cycle int64, fn func(RunningEvent)) {
	p.running.DrainUpTo(func(e RunningEvent) bool { return e.Cycle <= cycle }, fn)
}

// DrainMemCompletions pops every MemDoneHeap completion due at or before
// cycle.
func (p *Pool) DrainMemCompletions(cycle int64, fn func(RunningEvent)) {
	p.memDone.DrainUpTo(func(e RunningEvent) bool { return e.Cycle <= cycle }, fn)
}

// DrainFreeingUnits pops every due free-unit event, returning units to the
// pool and invoking fn so the caller can wake a unit-kind stall queue.
func (p *Pool) DrainFreeingUnits(cycle int64, fn func(Kind)) {
	p.freeingUnits.DrainUpTo(func(e FreeEvent) bool { return e.Cycle <= cycle }, func(e FreeEvent) {
		p.free[e.Kind]++
		fn(e.Kind)
	})
}
