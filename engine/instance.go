package engine

import "github.com/rsimgroup/rsim/isa"

// MemProgress mirrors the original simulator's overloaded memprogress field:
// most states are small sentinels, but a forwarding instance encodes the
// tag it forwarded from as -(3+tag).
type MemProgress int32

const (
	MemUnissued       MemProgress = 0
	MemIssuedToCache  MemProgress = -1
	MemCompleted      MemProgress = 1
	MemFlushed        MemProgress = 2
)

// ForwardTag returns the store tag a load forwarded from and true, if p
// encodes a forward (p == -(3+tag)).
func ForwardTag(p MemProgress) (Tag, bool) {
	if p > -3 {
		return 0, false
	}
	return Tag(-3 - int64(p)), true
}

// ForwardedFrom encodes a memprogress value recording a forward from src.
func ForwardedFrom(src Tag) MemProgress {
	return MemProgress(-3 - int64(src))
}

// ExceptKind is the exception taxonomy of 4.5: OK, the hard kinds, and the
// soft (memory-disambiguation) kinds.
type ExceptKind uint8

const (
	ExceptOK ExceptKind = iota
	ExceptDIV0
	ExceptFPERR
	ExceptSEGV
	ExceptBUSERR
	ExceptSYSTRAP
	ExceptWINTRAP
	ExceptSOFTLimbo
	ExceptSOFTSLCohe
	ExceptSOFTSLRepl
	ExceptSERIALIZE
	ExceptPRIVILEGED
	ExceptILLEGAL
	ExceptBADPC
)

// IsHard reports whether k is a hard (precise, pipeline-draining) exception.
func (k ExceptKind) IsHard() bool {
	switch k {
	case ExceptDIV0, ExceptFPERR, ExceptSEGV, ExceptBUSERR, ExceptSYSTRAP,
		ExceptWINTRAP, ExceptSERIALIZE, ExceptPRIVILEGED, ExceptILLEGAL, ExceptBADPC:
		return true
	default:
		return false
	}
}

// IsSoft reports whether k is one of the memory-disambiguation soft kinds.
func (k ExceptKind) IsSoft() bool {
	switch k {
	case ExceptSOFTLimbo, ExceptSOFTSLCohe, ExceptSOFTSLRepl:
		return true
	default:
		return false
	}
}

// StrucDep is the per-instance renaming state machine of 4.1.
type StrucDep int8

const (
	StrucRenamed StrucDep = iota
	StrucNeedFPDest
	StrucNeedIntDest
	StrucNeedALSlotDest
	StrucIntDestZeroNeedAL
	StrucNeedCCOrPairSecond
	StrucNeedALSlotCC
	_
	_
	_
	StrucNeedMemQueueSlot
)

// Busy-bit flags recording which of an instance's source operands are
// still waiting on a producing physical register (instance.h BUSY_SETRS*).
type BusyBits uint8

const (
	BusyRS1 BusyBits = 1 << iota
	BusyRS2
	BusyRSCC
	BusyRSD // FPHALF destination read-modify-write source
	BusyRS1P
)

const BusyAllClear BusyBits = 0

// Instance is the dynamic (in-flight) instruction: one allocation per
// fetched instruction, identified by a processor-unique, monotonically
// increasing Tag. Other structures in this module hold *Instance pointers
// directly; there is no arena, so a stale pointer after a flush is only
// recognized by looking its Tag up again.
type Instance struct {
	Tag  Tag
	PC   uint64
	NPC  uint64
	Code *isa.StaticInstruction

	WinNum int // window number snapshot at rename time

	// Logical/physical register state.
	LRs1, LRs2, LRsCC   uint8
	LRd, LRcc           uint8
	PRs1, PRs2, PRsCC   int32
	PRd, PRdp, PRcc     int32
	LRsd, PRsd          int32 // FPHALF RMW half

	// Dependence accounting.
	TrueDep  bool
	AddrDep  bool
	StrucDep StrucDep
	BranchDep int8
	StallQs  int32
	Busy     BusyBits
	PendingSources int32 // countdown; SendToFU when it reaches 0

	// Operand values, stored generically; interpretation depends on
	// Code.RdClass/Rs1Class/etc.
	RdVal, Rs1Val, Rs2Val, RsdVal uint64
	RsCCVal, RccVal              int32

	// Branch speculation. Taken is the predicted outcome Decide recorded;
	// ActualTaken is the resolved outcome execution supplies, compared
	// against Taken to detect misprediction.
	BranchPred   uint64
	NewPC        uint64
	Mispredicted bool
	Annulled     bool
	Taken        bool
	ActualTaken  bool

	// Memory.
	Addr         uint64
	AddrReady    bool
	FinishAddr   uint64
	MemProgress  MemProgress
	Limbo        bool
	Kill         bool
	Prefetched   bool
	VSBForward   bool
	GlobalPerform bool
	PartialOverlap bool
	MissType     int32
	LatePrefetch bool
	NewSt        bool // store not yet marked ready
	StReady      bool // store marked ready to issue
	InMemUnit    bool

	// Timing.
	IssueTime     int64
	AddrIssueTime int64
	Completion    int64
	TimeActiveList float64
	TimeAddrReady  float64
	TimeIssued     float64

	ExceptionCode ExceptKind
}

// NumAvail, NumElements, NumEntries as named on active.h's active list are
// provided there, not here; Instance itself carries no container logic.

// StallKind classifies why decode/rename/dispatch stalled fetch for a
// cycle — the "efficiency-loss kind" spec 4.1 asks every resource check to
// report on shortage, and spec 2/5's availability accounting buckets by.
type StallKind uint8

const (
	StallNone StallKind = iota
	StallFreeListInt
	StallFreeListFP
	StallActiveList
	StallShadowStack
	StallMemQueue
	StallIssueQueue
	StallRenameRegs
	StallFetch // I-cache/branch-resolution stall, not a structural shortage
	StallBranch
)

// ClearBusy drops bit from the waiting mask and reports whether all
// sources have now arrived (distributed wakeup, 4.1).
func (in *Instance) ClearBusy(bit BusyBits) (allReady bool) {
	in.Busy &^= bit
	return in.Busy == BusyAllClear
}
