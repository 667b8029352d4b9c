package branch

import (
	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/isa"
	"github.com/rsimgroup/rsim/rename"
)

// XferKind is StartCtlXfer's classification of a control-transfer
// instance (spec 4.2).
type XferKind uint8

const (
	XferUnconditional XferKind = iota // known direct target, not speculative
	XferConditional                   // predicted by the dynamic table
	XferReturn                        // predicted by the RAS
	XferIndirectUnpredicted           // stalls fetch until resolved
)

// Unit owns the dynamic prediction table and RAS for one core, and drives
// shadow-mapper push/restore through the renaming unit's ShadowStack.
type Unit struct {
	Table *Table
	Ras   *RAS
}

// New creates a branch unit with the given table scheme/size and RAS
// depth. A nil/zero-size table means static prediction only.
func New(scheme Scheme, tableSize, rasDepth int) *Unit {
	var tbl *Table
	if tableSize > 0 {
		tbl = NewTable(scheme, tableSize)
	}
	return &Unit{Table: tbl, Ras: NewRAS(rasDepth)}
}

// Classify implements StartCtlXfer's taxonomy from the static instruction
// shape alone (spec 4.2).
func Classify(code *isa.StaticInstruction) XferKind {
	switch {
	case code.Op == isa.OpRETURN:
		return XferReturn
	case code.IsCondBranch:
		return XferConditional
	case code.Op == isa.OpJMPL:
		return XferIndirectUnpredicted
	default:
		return XferUnconditional
	}
}

// Decision is what decode/rename needs to continue fetching speculatively.
type Decision struct {
	Kind        XferKind
	PredictTaken bool
	PredictedPC  uint64
	Speculative  bool // true if a shadow-mapper snapshot was taken
}

// Decide classifies in, consults the predictor/RAS, and — for every
// conditional branch, whichever direction is predicted, and every RETURN —
// pushes a shadow-mapper snapshot onto ru's stack under in.Tag.
// Unconditional direct and unpredicted indirect transfers push none, and
// delay slots get no snapshot of their own. Returns ok=false if a shadow
// snapshot was required but the stack was full (spec 4.1's
// "shadow-mapper stack full" stall kind).
func (u *Unit) Decide(in *engine.Instance, ru *rename.Unit) (Decision, bool) {
	kind := Classify(in.Code)
	dec := Decision{Kind: kind}

	switch kind {
	case XferUnconditional:
		dec.PredictTaken = true
		dec.PredictedPC = in.Code.PC + uint64(in.Code.Imm)
		if in.Code.Op == isa.OpCALL {
			u.Ras.Push(in.PC + 8)
		}
		return dec, true

	case XferReturn:
		addr, ok := u.Ras.Pop()
		if ok {
			dec.PredictTaken = true
			dec.PredictedPC = addr
		}
		dec.Speculative = true

	case XferConditional:
		taken := in.Code.StaticPrediction
		if u.Table != nil {
			taken = u.Table.Predict(in.PC, in.Code.StaticPrediction)
		}
		dec.PredictTaken = taken
		if taken {
			dec.PredictedPC = in.PC + uint64(in.Code.Imm)
		} else {
			dec.PredictedPC = in.NPC + 4
		}
		dec.Speculative = true

	case XferIndirectUnpredicted:
		// Unpredictable: fetch stalls until resolution; no shadow map
		// needed since nothing younger will have been speculatively
		// fetched past it.
		return dec, true
	}

	if dec.Speculative {
		if !ru.Shadow.Push(in.Tag, ru.Int, ru.FP) {
			return dec, false
		}
	}
	return dec, true
}

// Resolve is called when in's actual outcome is known. It updates the
// dynamic table (conditional branches only) and reports whether the
// prediction was correct. Callers use the verdict to either drop the
// shadow snapshot (GoodPrediction) or restore it and flush younger state
// (BadPrediction) via ru.Shadow directly.
func (u *Unit) Resolve(in *engine.Instance, actualTaken bool) (mispredicted bool) {
	if Classify(in.Code) == XferConditional && u.Table != nil {
		u.Table.Update(in.PC, in.Code.StaticPrediction, actualTaken)
	}
	return actualTaken != in.Taken
}
