// Package rename implements register renaming: the free lists of physical
// registers, the logical-to-physical rename map, and the shadow-mapper
// stack used to recover from branch misprediction (original RSIM
// MapTable/BranchQ, incl/Processor/branchq.h).
package rename

import "fmt"

// FreeList is a stack of physical register indices. A physical register is
// on the free list iff no architectural mapping and no shadow map
// references it (spec 3, "Free Lists").
type FreeList struct {
	stack []int32
}

// NewFreeList creates a free list pre-populated with registers
// [reserved, count), leaving [0, reserved) permanently unavailable (e.g.
// physical register 0, the hardwired architectural zero register, is never
// allocated).
func NewFreeList(count, reserved int) *FreeList {
	fl := &FreeList{stack: make([]int32, 0, count-reserved)}
	for pr := count - 1; pr >= reserved; pr-- {
		fl.stack = append(fl.stack, int32(pr))
	}
	return fl
}

// Avail reports how many physical registers remain unallocated.
func (fl *FreeList) Avail() int { return len(fl.stack) }

// Alloc pops one physical register. ok is false if the free list is
// exhausted — the caller must classify this as the matching
// efficiency-loss-kind stall (spec 4.1).
func (fl *FreeList) Alloc() (pr int32, ok bool) {
	n := len(fl.stack)
	if n == 0 {
		return 0, false
	}
	pr = fl.stack[n-1]
	fl.stack = fl.stack[:n-1]
	return pr, true
}

// Free returns pr to the pool. It must not already be mapped or shadowed.
func (fl *FreeList) Free(pr int32) {
	fl.stack = append(fl.stack, pr)
}

// String supports debugging/logging in the teacher's fmt.Sprintf idiom.
func (fl *FreeList) String() string {
	return fmt.Sprintf("FreeList{avail=%d}", len(fl.stack))
}
