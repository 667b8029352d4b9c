package rename

import (
	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/isa"
)

// ZeroReg is the hardwired architectural zero register; renaming it is a
// no-op (instance.h treats lrd/lrcc == 0 specially rather than consuming a
// physical register).
const ZeroReg uint8 = 0

// Unit owns the free lists, the live rename maps, and the shadow-mapper
// stack for one processor core.
type Unit struct {
	IntFree *FreeList
	FPFree  *FreeList
	Int     *Map
	FP      *Map
	Shadow  *ShadowStack
}

// NewUnit builds a renaming unit with numIntPhys/numFPPhys physical
// registers and maxSpec shadow-mapper depth. The maps start
// identity-mapped (logical i on physical i), so only physical registers
// [numLogical, numPhys) of each file start on its free list; physical
// register 0 stays mapped to the integer zero register.
func NewUnit(numLogicalInt, numIntPhys, numLogicalFP, numFPPhys, maxSpec int) *Unit {
	return &Unit{
		IntFree: NewFreeList(numIntPhys, numLogicalInt),
		FPFree:  NewFreeList(numFPPhys, numLogicalFP),
		Int:     NewMap(numLogicalInt, numIntPhys),
		FP:      NewMap(numLogicalFP, numFPPhys),
		Shadow:  NewShadowStack(maxSpec),
	}
}

// Result carries the old mappings the caller must preserve in a paired
// active-list entry (spec 4.1 step (c)) and the new ones rename installed.
type Result struct {
	OldPRd, OldPRdp, OldPRcc int32
	NewPRd, NewPRdp, NewPRcc int32
	HasPair                  bool // dest is an INT_PAIR: PRdp is the second half
	HasCC                    bool // dest has a CC result
}

func classFile(c isa.RegClass) RegFile {
	if c == isa.RegFP || c == isa.RegFPHalf {
		return FileFP
	}
	return FileInt
}

func (u *Unit) alloc(file RegFile) (int32, engine.StallKind, bool) {
	if file == FileFP {
		pr, ok := u.FPFree.Alloc()
		if !ok {
			return 0, engine.StallFreeListFP, false
		}
		return pr, engine.StallNone, true
	}
	pr, ok := u.IntFree.Alloc()
	if !ok {
		return 0, engine.StallFreeListInt, false
	}
	return pr, engine.StallNone, true
}

func (u *Unit) mapFor(file RegFile) *Map {
	if file == FileFP {
		return u.FP
	}
	return u.Int
}

// Rename implements the contract of spec 4.1: allocate the destination
// physical register (none if the architectural register is the zero
// register), allocate a second physical register for an INT_PAIR's second
// half or for the CC result, and install the new mappings, returning the
// old ones for the caller to stash in the active list. It does not touch
// the active list, shadow stack, or any queue — callers perform those
// resource checks (and push a shadow snapshot, for branches) themselves so
// a failed downstream check can still be classified distinctly, matching
// the per-sub-step stall taxonomy the spec calls for.
func (u *Unit) Rename(in *engine.Instance) (Result, engine.StallKind, bool) {
	var res Result

	if in.Code.RdClass != isa.RegNone && in.LRd != ZeroReg {
		file := classFile(in.Code.RdClass)
		pr, kind, ok := u.alloc(file)
		if !ok {
			return res, kind, false
		}
		res.NewPRd = pr
		res.OldPRd = u.mapFor(file).Rename(in.LRd, pr)
	} else {
		res.NewPRd, res.OldPRd = -1, -1
	}

	if in.Code.RdClass == isa.RegINTPair {
		pr, kind, ok := u.alloc(FileInt)
		if !ok {
			return res, kind, false
		}
		res.HasPair = true
		res.NewPRdp = pr
		res.OldPRdp = u.Int.Rename(in.LRd+1, pr)
	} else if in.Code.RdCCClass == isa.RegCC && in.LRcc != ZeroReg {
		pr, kind, ok := u.alloc(FileInt)
		if !ok {
			return res, kind, false
		}
		res.HasCC = true
		res.NewPRcc = pr
		res.OldPRcc = u.Int.Rename(in.LRcc, pr)
	} else {
		res.NewPRcc, res.OldPRcc = -1, -1
	}

	in.PRd, in.PRdp, in.PRcc = res.NewPRd, res.NewPRdp, res.NewPRcc
	in.StrucDep = engine.StrucRenamed
	return res, engine.StallNone, true
}

// Complete marks pr's busy bit clear once its producer instance finishes,
// driving the distributed-wakeup step of spec 4.1. CC/pair registers live
// in the integer map regardless of the producing instruction's data class.
func (u *Unit) Complete(pr int32, file RegFile) {
	u.mapFor(file).MarkReady(pr)
}

// Retire frees the physical register that WAS mapped before this
// instance's rename — never the one it just produced — per spec 4.1
// ("the old physical register freed is the one that was mapped").
func (u *Unit) Retire(oldPR int32, file RegFile) {
	if oldPR < 0 {
		return
	}
	if file == FileFP {
		u.FPFree.Free(oldPR)
		return
	}
	u.IntFree.Free(oldPR)
}

// Undo reverts a Rename that a later decode-time check (shadow-stack-full,
// active-list-full) rejected after the fact: it puts lr's mapping back to
// what it was and frees the physical registers Rename just allocated,
// rather than leaking them. The destination, pair, and CC cases mirror the
// three allocation sites in Rename exactly.
func (u *Unit) Undo(in *engine.Instance, res Result) {
	if res.NewPRd >= 0 {
		file := classFile(in.Code.RdClass)
		u.mapFor(file).Restore(in.LRd, res.OldPRd)
		u.Retire(res.NewPRd, file)
	}
	if res.HasPair {
		u.Int.Restore(in.LRd+1, res.OldPRdp)
		u.Retire(res.NewPRdp, FileInt)
	} else if res.HasCC {
		u.Int.Restore(in.LRcc, res.OldPRcc)
		u.Retire(res.NewPRcc, FileInt)
	}
	in.PRd, in.PRdp, in.PRcc = -1, -1, -1
}
