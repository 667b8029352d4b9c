package activelist

import "github.com/rsimgroup/rsim/engine"

// TagLookup is the bounded tag-ordered structure spec 3 calls the
// "Tag-to-Instance Lookup", backed by the same CircQ every other
// tag-ordered structure in this module uses. It offers tail insertion,
// binary search by tag, head-pop (retirement), tail-pop, and tail-flush
// from a tag; it has no peek-by-position or delete-by-search operation.
type TagLookup struct {
	q *engine.CircQ[*engine.Instance]
}

// NewTagLookup creates a lookup table bounded to capacity in-flight
// instances (equal to the active-list element capacity in practice).
func NewTagLookup(capacity int) *TagLookup {
	return &TagLookup{q: engine.NewCircQ[*engine.Instance](capacity)}
}

// Insert appends in at the tail; callers must insert in increasing tag
// order (the fetch/rename order), preserving the tag-monotonicity
// invariant the binary search depends on.
func (t *TagLookup) Insert(in *engine.Instance) bool { return t.q.Insert(in) }

// Lookup finds an instance by tag via binary search.
func (t *TagLookup) Lookup(tag engine.Tag) (*engine.Instance, bool) {
	idx, ok := t.q.Search(func(e *engine.Instance) int { return int(e.Tag - tag) })
	if !ok {
		return nil, false
	}
	in, _ := t.q.PeekElt(idx)
	return in, true
}

// PopHead removes and returns the oldest instance (retirement).
func (t *TagLookup) PopHead() (*engine.Instance, bool) { return t.q.Delete() }

// PopTail removes and returns the youngest instance (flush).
func (t *TagLookup) PopTail() (*engine.Instance, bool) { return t.q.DeleteFromTail() }

// FlushFrom tail-pops every instance with Tag >= tag, returning them in
// youngest-first order for the caller to unwind (free its registers,
// remove it from queues, etc).
func (t *TagLookup) FlushFrom(tag engine.Tag) []*engine.Instance {
	var flushed []*engine.Instance
	for {
		last, ok := t.q.PeekTail()
		if !ok || last.Tag < tag {
			return flushed
		}
		in, _ := t.q.DeleteFromTail()
		flushed = append(flushed, in)
	}
}

// Len reports the number of tracked in-flight instances.
func (t *TagLookup) Len() int { return t.q.Len() }
