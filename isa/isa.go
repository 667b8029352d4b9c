// Package isa defines the static instruction data model consumed by the
// core pipeline. Turning a target binary into this array is the job of an
// external pre-decoder (out of scope here, per the processor's own
// specification) — isa only describes the shape that pre-decoded stream
// takes and the opcode set the pipeline must be able to schedule, rename,
// and execute.
package isa

// RegClass identifies the architectural register class a logical register
// number belongs to, so renaming can pick the matching free list.
type RegClass uint8

const (
	// RegNone means the field is unused (no register).
	RegNone RegClass = iota
	// RegINT is a 32-bit integer register.
	RegINT
	// RegINT64 is a 64-bit integer register (extended-word ops).
	RegINT64
	// RegINTPair is a pair of adjacent integer registers (LDD/STD).
	RegINTPair
	// RegFP is a single-precision or double-precision float register.
	RegFP
	// RegFPHalf is one half of a double when accessed as two singles
	// (read-modify-write of the other half is required).
	RegFPHalf
	// RegCC is a condition-code register.
	RegCC
)

// WindowChange describes how an instruction affects the SPARC register
// window pointer (CWP).
type WindowChange uint8

const (
	// WinNone performs no window change.
	WinNone WindowChange = iota
	// WinSave is a SAVE instruction (CWP--, may trigger window overflow).
	WinSave
	// WinRestore is a RESTORE instruction (CWP++, may trigger underflow).
	WinRestore
)

// Op enumerates the opcodes the core pipeline must be able to schedule.
// This is a SPARC V9 user-level subset sufficient to exercise every pipeline
// component named in the specification; it is not a complete SPARC V9
// encoding and carries no relationship to any other architecture's opcode
// numbering.
type Op uint16

const (
	OpNOP Op = iota

	// Integer ALU, register-register and register-immediate.
	OpADD
	OpADDcc
	OpSUB
	OpSUBcc
	OpAND
	OpANDcc
	OpOR
	OpXOR
	OpSLL
	OpSRL
	OpSRA
	OpMULX
	OpSDIVX
	OpUDIVX
	OpSETHI

	// Floating point.
	OpFADD
	OpFSUB
	OpFMUL
	OpFDIV
	OpFCMP

	// Control transfer.
	OpBicc  // conditional branch, integer CC
	OpFBfcc // conditional branch, FP CC
	OpBA    // unconditional direct branch
	OpCALL  // unconditional direct, return-address link (predicted via RAS push)
	OpJMPL  // indirect jump (always unpredicted; returns use OpRETURN)
	OpRETURN

	// Loads.
	OpLDUW
	OpLDSB
	OpLDSH
	OpLDSW
	OpLDX
	OpLDD
	OpLDF
	OpLDDF

	// Stores.
	OpSTW
	OpSTB
	OpSTH
	OpSTX
	OpSTD
	OpSTF
	OpSTDF

	// Read-modify-write atomics.
	OpSWAP
	OpLDSTUB
	OpCASA
	OpCASXA

	// Software/hardware prefetch.
	OpPREFETCH

	// Memory barrier.
	OpMEMBAR

	// Window management.
	OpSAVE
	OpRESTORE
	OpSAVED
	OpRESTORED

	// FSR and serialize-class instructions.
	OpLDFSR
	OpLDXFSR
	OpSTFSR
	OpSTXFSR
	OpDONE
	OpRETRY

	// Trap.
	OpTicc
	OpILLTRAP
)

// MemBarFlags are the four direction bits plus the issue-blocking bit a
// MEMBAR instruction may carry (§3 "Membar Descriptor").
type MemBarFlags uint8

const (
	MembarSS MemBarFlags = 1 << iota // StoreStore
	MembarLS                         // LoadStore
	MembarSL                         // StoreLoad
	MembarLL                         // LoadLoad
	MembarIssue                      // #MemIssue: block issue past this point
)

// Prefetch flavor, consumed by the memory unit's prefetch policy (§4.3).
type PrefetchKind uint8

const (
	PrefetchNone PrefetchKind = iota
	PrefetchShared
	PrefetchExclusive
)

// StaticInstruction is the immutable, pre-decoded instruction record the
// core pipeline fetches from (§3 "Static Instruction"). One exists per
// static program location; many dynamic Instances may reference the same
// StaticInstruction across loop iterations.
type StaticInstruction struct {
	Op Op

	// Source/destination architectural register numbers. Meaning depends
	// on Op; RegNone-classed fields are ignored.
	Rs1, Rs2, Rscc   uint8
	Rd, Rdcc         uint8
	Rs1Class         RegClass
	Rs2Class         RegClass
	RdClass          RegClass
	RdCCClass        RegClass
	HasImm           bool
	Imm              int64
	HasRs2           bool // false for immediate forms

	// Auxiliary bits.
	Annul            bool // annul delay slot if branch not taken (as predicted)
	IsCondBranch     bool
	IsUncondBranch   bool
	TakenHint        bool // static "taken" prediction bit for static scheduling
	WindowChange     WindowChange

	MemBar    MemBarFlags // valid when Op == OpMEMBAR
	Prefetch  PrefetchKind
	IsRMW     bool // SWAP/CASA/CASXA/LDSTUB
	Size      uint8 // access size in bytes, for loads/stores

	// Trap payload, valid when Op == OpILLTRAP / OpTicc.
	TrapNumber uint32
	TrapAux2   uint32

	// StaticPrediction is used in place of the dynamic predictor tables
	// when dynamic prediction is disabled (§4.2).
	StaticPrediction bool

	// PC is the static address of this instruction, used for prediction
	// table indexing and for fetch sequencing.
	PC uint64
}

// IsBranch reports whether the instruction is any kind of control transfer
// that StartCtlXfer must classify.
func (s *StaticInstruction) IsBranch() bool {
	switch s.Op {
	case OpBicc, OpFBfcc, OpBA, OpCALL, OpJMPL, OpRETURN:
		return true
	default:
		return false
	}
}

// IsLoad reports whether the instruction reads memory.
func (s *StaticInstruction) IsLoad() bool {
	switch s.Op {
	case OpLDUW, OpLDSB, OpLDSH, OpLDSW, OpLDX, OpLDD, OpLDF, OpLDDF:
		return true
	case OpSWAP, OpLDSTUB, OpCASA, OpCASXA:
		return true // RMWs read first
	case OpPREFETCH:
		return true // scheduled through the load path, completes early
	default:
		return false
	}
}

// IsStore reports whether the instruction writes memory.
func (s *StaticInstruction) IsStore() bool {
	switch s.Op {
	case OpSTW, OpSTB, OpSTH, OpSTX, OpSTD, OpSTF, OpSTDF:
		return true
	case OpSWAP, OpLDSTUB, OpCASA, OpCASXA:
		return true // RMWs write too
	default:
		return false
	}
}

// IsMemOp reports whether the instruction is handled by the memory unit at
// all (loads, stores, RMWs, prefetches, and membars).
func (s *StaticInstruction) IsMemOp() bool {
	return s.IsLoad() || s.IsStore() || s.Op == OpMEMBAR
}
