// Package stats implements the core's observable metrics: availability
// losses bucketed by efficiency-loss kind, the graduate/fetch utility
// ratio, per-cause stall cycle counts, and the aggregate-latency bucket
// pairs opened/closed by ILLTRAP aux2 markers (spec 2's "Statistics/
// availability/efficiency/utility accounting" component and testable
// property 9's stall-accounting identity).
package stats

import "github.com/rsimgroup/rsim/engine"

// Report accumulates one processor's statistics across its run. Fields
// use the teacher's flat-struct-plus-derived-method shape (see
// timing/latency/config.go's Stats/Config split) rather than a
// metrics-library dependency, since the pack carries no metrics SDK for
// this domain.
type Report struct {
	Cycles          int64
	InstructionCount int64
	Graduates       int64

	// Availability losses, keyed by the same StallKind fetch/rename
	// reports (spec 4.1/5).
	Losses map[engine.StallKind]int64

	BpbGoodPredicts int64
	BpbBadPredicts  int64

	Limbos, Unlimbos, Redos, Kills int64

	HardExceptions int64
	SoftExceptions int64

	VSBForwards int64

	aggregateOpen  bool
	aggregateStart int64
	AggregateLatencyBuckets []int64 // length in cycles (end - start) of each closed window
}

// New creates an empty report.
func New() *Report {
	return &Report{Losses: make(map[engine.StallKind]int64)}
}

// RecordCycle advances the cycle counter; call once per simulated cycle
// regardless of whether useful work happened (spec 5's per-cycle stats
// sampling step).
func (r *Report) RecordCycle() { r.Cycles++ }

// RecordLoss attributes one cycle's fetch stall to kind.
func (r *Report) RecordLoss(kind engine.StallKind) {
	if kind == engine.StallNone {
		return
	}
	r.Losses[kind]++
}

// RecordGraduate counts one retired instance.
func (r *Report) RecordGraduate() { r.Graduates++ }

// RecordFetch counts one fetched/decoded instance.
func (r *Report) RecordFetch() { r.InstructionCount++ }

// RecordBranch tallies a resolved branch's prediction outcome.
func (r *Report) RecordBranch(correct bool) {
	if correct {
		r.BpbGoodPredicts++
	} else {
		r.BpbBadPredicts++
	}
}

// RecordException tallies a hard or soft exception occurrence.
func (r *Report) RecordException(kind engine.ExceptKind) {
	switch {
	case kind.IsHard():
		r.HardExceptions++
	case kind.IsSoft():
		r.SoftExceptions++
	}
}

// OpenAggregateBucket begins an aggregate-latency measurement window at
// the retirement of an ILLTRAP whose aux2 is in {4097..} (spec 4.1).
func (r *Report) OpenAggregateBucket(cycle int64) {
	r.aggregateOpen, r.aggregateStart = true, cycle
}

// CloseAggregateBucket ends the window at the retirement of the matching
// aux2==4096 ILLTRAP, recording its span.
func (r *Report) CloseAggregateBucket(cycle int64) {
	if !r.aggregateOpen {
		return
	}
	r.AggregateLatencyBuckets = append(r.AggregateLatencyBuckets, cycle-r.aggregateStart)
	r.aggregateOpen = false
}

// TotalLosses sums every bucketed availability loss.
func (r *Report) TotalLosses() int64 {
	var total int64
	for _, v := range r.Losses {
		total += v
	}
	return total
}

// Utility is graduated/fetched, the ratio testable property 9 names.
func (r *Report) Utility() float64 {
	if r.InstructionCount == 0 {
		return 0
	}
	return float64(r.Graduates) / float64(r.InstructionCount)
}

// CheckStallIdentity verifies property 9's accounting identity:
// decodeRate * executedCycles == usefulFetches + sum(losses). Returns the
// imbalance (0 means the identity holds); callers/tests compare against 0.
func (r *Report) CheckStallIdentity(decodeRate int, executedCycles int64, usefulFetches int64) int64 {
	return int64(decodeRate)*executedCycles - (usefulFetches + r.TotalLosses())
}
