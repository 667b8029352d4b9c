// Package branch implements branch prediction (bimodal/agree 2-bit
// counters plus a return-address stack) and misprediction recovery tied to
// the rename package's shadow-mapper stack, per spec 4.2.
package branch

// Scheme selects the dynamic predictor table's update discipline.
type Scheme uint8

const (
	Bimodal Scheme = iota
	Agree
)

// counter is a saturating 2-bit state: 0,1 predict not-taken, 2,3 predict
// taken (the standard Smith counter).
type counter uint8

const (
	strongNotTaken counter = iota
	weakNotTaken
	weakTaken
	strongTaken
)

func (c counter) predictTaken() bool { return c >= weakTaken }

func (c counter) update(taken bool) counter {
	if taken {
		if c < strongTaken {
			return c + 1
		}
		return c
	}
	if c > strongNotTaken {
		return c - 1
	}
	return c
}

// Table is a direct-mapped table of 2-bit saturating counters indexed by
// PC, optionally biased by a static "agree" bit recorded at decode (the
// agree predictor trains each counter on whether the resolved outcome
// agreed with the static hint, rather than on the raw taken/not-taken
// outcome, to reduce
// destructive aliasing between unrelated branches).
type Table struct {
	scheme   Scheme
	counters []counter
	mask     uint64
}

// NewTable creates a prediction table with the given power-of-two size.
func NewTable(scheme Scheme, size int) *Table {
	counters := make([]counter, size)
	for i := range counters {
		counters[i] = weakNotTaken
	}
	return &Table{scheme: scheme, counters: counters, mask: uint64(size - 1)}
}

func (t *Table) index(pc uint64) uint64 { return (pc >> 2) & t.mask }

// Predict returns whether the table predicts pc's branch taken. staticHint
// is the static-prediction bit from the static instruction, used by the
// agree scheme to translate the stored agree/disagree bit back into a
// taken/not-taken verdict.
func (t *Table) Predict(pc uint64, staticHint bool) bool {
	c := t.counters[t.index(pc)]
	agrees := c.predictTaken()
	if t.scheme == Bimodal {
		return agrees
	}
	if agrees {
		return staticHint
	}
	return !staticHint
}

// Update adjusts pc's counter given the resolved outcome taken.
func (t *Table) Update(pc uint64, staticHint, taken bool) {
	idx := t.index(pc)
	c := t.counters[idx]
	if t.scheme == Bimodal {
		t.counters[idx] = c.update(taken)
		return
	}
	agreed := taken == staticHint
	t.counters[idx] = c.update(agreed)
}
