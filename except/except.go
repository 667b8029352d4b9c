// Package except implements the precise-exception drain state machine of
// spec 4.5: classifying hard vs soft exception kinds, deciding whether a
// hard exception must wait on outstanding stores before draining, and
// pacing the active-list pair-flush during drain.
package except

import "github.com/rsimgroup/rsim/engine"

// Recoverable reports whether kind can restart the instruction stream
// after precise drain, versus terminating the processor (spec 7's
// recoverable/fatal partition).
func Recoverable(kind engine.ExceptKind) bool {
	switch kind {
	case engine.ExceptSEGV, // SEGV-in-stack-range is recoverable; general SEGV is fatal,
		// distinguished by the caller checking the faulting address against
		// the stack growth range before calling this.
		engine.ExceptSYSTRAP,
		engine.ExceptWINTRAP,
		engine.ExceptSERIALIZE,
		engine.ExceptBUSERR, // only the word-aligned LDDF/LDQF case; see Dispatch
		engine.ExceptSOFTLimbo,
		engine.ExceptSOFTSLCohe,
		engine.ExceptSOFTSLRepl:
		return true
	default:
		return false
	}
}

// Phase is the precise-drain state machine's position.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhasePreDrain         // hard exception waiting for ReadyUnissuedStores == 0
	PhaseFlushing         // tail-flushing shadow maps/memory queues/stall queue
	PhaseFlushingActiveList // pair-flushing the active list at the configured rate
	PhaseDispatch         // dispatching by kind (SEGV growth, syscall, trap table, ...)
	PhaseDone
)

// Drain drives one core's precise-exception recovery across cycles. It
// does not itself touch the active list/memory queues/shadow stack —
// core.Processor owns those calls — but it sequences when each may run so
// a hard exception never flushes register state out from under an
// in-flight store.
type Drain struct {
	Phase           Phase
	Kind            engine.ExceptKind
	Tag             engine.Tag
	FlushRatePerCyc int
	flushedThisCyc  int
}

// NewDrain starts draining for an exception of kind at tag. Soft
// exceptions skip pre-drain and active-list flushing entirely (spec 4.5:
// "a soft exception drains immediately in place" — it restarts only the
// excepting load, never flushes younger state).
func NewDrain(kind engine.ExceptKind, tag engine.Tag, flushRate int) *Drain {
	d := &Drain{Kind: kind, Tag: tag, FlushRatePerCyc: flushRate}
	if kind.IsSoft() {
		d.Phase = PhaseDone
	} else {
		d.Phase = PhasePreDrain
	}
	return d
}

// AdvancePreDrain transitions out of PhasePreDrain once readyUnissuedStores
// reaches zero (spec 4.5: "a hard exception must wait for
// ReadyUnissuedStores == 0").
func (d *Drain) AdvancePreDrain(readyUnissuedStores int) {
	if d.Phase == PhasePreDrain && readyUnissuedStores == 0 {
		d.Phase = PhaseFlushing
		d.flushedThisCyc = 0
	}
}

// AdvanceFlushing moves from the one-shot structural flush (shadow maps,
// memory queues, stall queue) into active-list pair-flushing.
func (d *Drain) AdvanceFlushing() {
	if d.Phase == PhaseFlushing {
		d.Phase = PhaseFlushingActiveList
	}
}

// TickActiveListFlush reports how many active-list pairs may be flushed
// this cycle (bounded by FlushRatePerCyc), and transitions to PhaseDispatch
// once remaining reaches zero.
func (d *Drain) TickActiveListFlush(remaining int) (budget int) {
	if d.Phase != PhaseFlushingActiveList {
		return 0
	}
	budget = d.FlushRatePerCyc
	if budget > remaining {
		budget = remaining
	}
	if remaining-budget == 0 {
		d.Phase = PhaseDispatch
	}
	return budget
}

// Finish marks the drain complete, whatever PhaseDispatch decided to do
// (restart, trap table redirect, syscall emulation, fatal termination).
func (d *Drain) Finish() { d.Phase = PhaseDone }

// Done reports whether the drain has finished.
func (d *Drain) Done() bool { return d.Phase == PhaseDone }
