package rename

import "github.com/rsimgroup/rsim/engine"

// ShadowEntry is the Go counterpart of BranchQElement: the tag of the
// branch and a frozen copy of both
// rename maps taken at decode time.
type ShadowEntry struct {
	Tag     engine.Tag
	IntMap  *Map
	FPMap   *Map
	Done    bool
}

// ShadowStack is the BranchQ: a bounded, tag-ordered sequence of shadow
// mapper snapshots, one per in-flight conditional branch or RETURN
// (branch.Unit.Decide pushes none for an unpredicted indirect jump).
// Capacity is MAX_SPEC (spec 3, "Shadow-Mapper Stack").
type ShadowStack struct {
	entries *engine.CircQ[ShadowEntry]
}

// NewShadowStack creates a stack with the given maximum in-flight
// speculation depth.
func NewShadowStack(maxSpec int) *ShadowStack {
	return &ShadowStack{entries: engine.NewCircQ[ShadowEntry](maxSpec)}
}

// Avail reports remaining speculation depth.
func (s *ShadowStack) Avail() int { return s.entries.Cap() - s.entries.Len() }

// Push snapshots intMap/fpMap under tag. ok is false if the stack is full
// — the efficiency-loss kind is "shadow-mapper stack full" (spec 4.1).
func (s *ShadowStack) Push(tag engine.Tag, intMap, fpMap *Map) bool {
	return s.entries.Insert(ShadowEntry{
		Tag:    tag,
		IntMap: intMap.Snapshot(),
		FPMap:  fpMap.Snapshot(),
	})
}

// GoodPrediction drops the snapshot for tag: the branch resolved
// correctly, so the shadow map is no longer needed.
func (s *ShadowStack) GoodPrediction(tag engine.Tag) bool {
	idx, ok := s.entries.Search(func(e ShadowEntry) int { return int(e.Tag - tag) })
	if !ok {
		return false
	}
	return s.entries.DeleteElt(idx)
}

// BadPrediction locates the snapshot for tag, restores it into intMap and
// fpMap, and tail-flushes every younger shadow entry (they speculated past
// a mispredicted branch and are invalid). Returns false if tag is not
// present.
func (s *ShadowStack) BadPrediction(tag engine.Tag, intMap, fpMap *Map) bool {
	idx, ok := s.entries.Search(func(e ShadowEntry) int { return int(e.Tag - tag) })
	if !ok {
		return false
	}
	entry, _ := s.entries.PeekElt(idx)
	intMap.RestoreFrom(entry.IntMap)
	fpMap.RestoreFrom(entry.FPMap)

	for s.entries.Len() > idx {
		s.entries.DeleteFromTail()
	}
	return true
}

// MarkDone flags tag's entry resolved without removing it (the original
// BranchQElement.done bit); callers that want removal call GoodPrediction
// or BadPrediction instead.
func (s *ShadowStack) MarkDone(tag engine.Tag) {
	idx, ok := s.entries.Search(func(e ShadowEntry) int { return int(e.Tag - tag) })
	if !ok {
		return
	}
	e, _ := s.entries.PeekElt(idx)
	e.Done = true
	s.entries.SetElt(idx, e)
}

// FlushFrom tail-flushes every shadow entry with Tag >= tag, used when a
// structural flush (exception, membar-driven kill) needs to invalidate
// in-flight speculation without a specific predictor verdict.
func (s *ShadowStack) FlushFrom(tag engine.Tag) {
	for {
		last, ok := s.entries.PeekTail()
		if !ok || last.Tag < tag {
			return
		}
		s.entries.DeleteFromTail()
	}
}

// Len reports the number of in-flight shadow entries.
func (s *ShadowStack) Len() int { return s.entries.Len() }
