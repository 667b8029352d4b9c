package rename

// RegFile names which physical pool a logical register class maps into.
// CC and INT_PAIR second halves share the integer pool; FP and FPHALF
// share the floating-point pool (instance.h's imap/fmap split).
type RegFile uint8

const (
	FileInt RegFile = iota
	FileFP
)

// Map is the logical-to-physical rename map for one register file — the
// Go counterpart of MapTable's imap/fmap arrays (incl/Processor/branchq.h).
// A Map additionally tracks which physical registers are still busy
// (awaiting their producer), since both the live map and its shadow
// snapshots need that bit to drive distributed wakeup.
type Map struct {
	phys []int32 // phys[logical] = physical register index
	busy []bool  // busy[physical] = true until the producer completes
}

// NewMap creates a rename map with numLogical logical registers backed by
// a pool of numPhys physical registers, identity-initialized (logical i
// maps to physical i, mirroring the reset state of a fresh register file).
func NewMap(numLogical, numPhys int) *Map {
	m := &Map{
		phys: make([]int32, numLogical),
		busy: make([]bool, numPhys),
	}
	for i := range m.phys {
		m.phys[i] = int32(i)
	}
	return m
}

// Lookup returns the physical register currently mapped to lr.
func (m *Map) Lookup(lr uint8) int32 { return m.phys[lr] }

// Rename installs pr as the new mapping for lr and marks it busy,
// returning the old mapping that must be preserved in an active-list
// entry for later restoration (spec 4.1 step (c)).
func (m *Map) Rename(lr uint8, pr int32) (old int32) {
	old = m.phys[lr]
	m.phys[lr] = pr
	m.busy[pr] = true
	return old
}

// Restore installs old back as lr's mapping (used by Unit.Undo to revert
// a rejected rename; shadow-map recovery uses RestoreFrom).
func (m *Map) Restore(lr uint8, old int32) {
	m.phys[lr] = old
}

// MarkReady clears the busy bit for a physical register once its producer
// completes.
func (m *Map) MarkReady(pr int32) {
	if pr >= 0 && int(pr) < len(m.busy) {
		m.busy[pr] = false
	}
}

// IsBusy reports whether pr's producer has not yet completed.
func (m *Map) IsBusy(pr int32) bool {
	if pr < 0 || int(pr) >= len(m.busy) {
		return false
	}
	return m.busy[pr]
}

// Snapshot returns a deep copy of the map, suitable for storing in a
// BranchQ shadow-mapper entry.
func (m *Map) Snapshot() *Map {
	cp := &Map{
		phys: make([]int32, len(m.phys)),
		busy: make([]bool, len(m.busy)),
	}
	copy(cp.phys, m.phys)
	copy(cp.busy, m.busy)
	return cp
}

// RestoreFrom replaces m's contents with snap's (misprediction recovery).
func (m *Map) RestoreFrom(snap *Map) {
	copy(m.phys, snap.phys)
	copy(m.busy, snap.busy)
}
