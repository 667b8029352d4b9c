// Package traptable implements the built-in register-window spill/fill
// micro-program and FSR store traps of spec 4.6: a fixed array of
// synthetic memory/control micro-ops the core redirects fetch into on
// WINTRAP, rather than a general trap handler.
package traptable

import "github.com/rsimgroup/rsim/isa"

// MicroOp is one step of the trap table's built-in program.
type MicroOp struct {
	Op       isa.Op
	RegIndex uint8 // window register (0-15: outs+locals) this step spills/fills; 16 is the spill program's %sp bookkeeping slot
}

// Kind selects which half of a register-window trap the table builds: a
// SAVE-triggered overflow spills the current window (17 stores: 16
// registers plus the already-saved %sp bookkeeping slot under SAVRESTD),
// a RESTORE-triggered underflow fills it (16 loads).
type Kind uint8

const (
	Spill Kind = iota // window overflow: 17 stores + SAVED
	Fill              // window underflow: 16 loads + RESTORED
)

// Build constructs the micro-program for one window trap, in the order
// the original trap table executes them (spec 4.6: "17 stores / 16 loads
// plus SAVE/RESTORE/SAVRESTD/DONERETRY").
func Build(kind Kind) []MicroOp {
	var ops []MicroOp
	switch kind {
	case Spill:
		for r := uint8(0); r < 16; r++ {
			ops = append(ops, MicroOp{Op: isa.OpSTW, RegIndex: r})
		}
		ops = append(ops, MicroOp{Op: isa.OpSTW, RegIndex: 16}) // %sp bookkeeping slot
		ops = append(ops, MicroOp{Op: isa.OpSAVED})
	case Fill:
		for r := uint8(0); r < 16; r++ {
			ops = append(ops, MicroOp{Op: isa.OpLDUW, RegIndex: r})
		}
		ops = append(ops, MicroOp{Op: isa.OpRESTORED})
	}
	ops = append(ops, MicroOp{Op: isa.OpDONE})
	return ops
}

// FSRTraps maps the FSR-manipulating opcodes to the micro-op that
// performs their store-trap handling (spec 4.6: "the FSR store traps").
var FSRTraps = map[isa.Op]MicroOp{
	isa.OpLDFSR:  {Op: isa.OpLDFSR},
	isa.OpLDXFSR: {Op: isa.OpLDXFSR},
	isa.OpSTFSR:  {Op: isa.OpSTFSR},
	isa.OpSTXFSR: {Op: isa.OpSTXFSR},
}

// Table is the per-core instantiation: the built micro-programs plus the
// in-simulator PC range fetch is redirected to on WINTRAP.
type Table struct {
	BaseAddr uint64
	spill    []MicroOp
	fill     []MicroOp
}

// NewTable builds both micro-programs at baseAddr, the synthetic address
// range the processor's fetch stage recognizes as "redirect here instead
// of real memory."
func NewTable(baseAddr uint64) *Table {
	return &Table{BaseAddr: baseAddr, spill: Build(Spill), fill: Build(Fill)}
}

// Program returns the micro-op sequence for a spill (SAVE overflow) or
// fill (RESTORE underflow) trap.
func (t *Table) Program(kind Kind) []MicroOp {
	if kind == Spill {
		return t.spill
	}
	return t.fill
}
