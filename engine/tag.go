// Package engine provides the generic, domain-agnostic containers the rest
// of the core is built on: a monotonically increasing per-processor tag
// allocator, a tag-ordered circular queue, and comparator-parameterized
// heaps for completion scheduling. There is no arena or pool allocator:
// components elsewhere in the module hold *Instance pointers directly, and
// a flushed instance is recognized as gone by looking its tag up again
// (activelist.TagLookup).
package engine

// Tag uniquely identifies a dynamic instance within one processor's
// lifetime. Tags increase monotonically and are never reused while in
// flight; once an instance retires or is flushed its tag value may still be
// compared against later (stale) snapshots, so tags are never reset while
// instances are in flight (see TagAllocator.Reset).
type Tag uint64

// TagAllocator hands out strictly increasing tags.
type TagAllocator struct {
	next Tag
}

// Next returns the next tag and advances the counter.
func (a *TagAllocator) Next() Tag {
	t := a.next
	a.next++
	return t
}

// Reset restarts tag allocation from zero. Only safe when no in-flight
// instance still references an old tag.
func (a *TagAllocator) Reset() {
	a.next = 0
}

// Peek returns the tag that will be allocated next, without consuming it.
func (a *TagAllocator) Peek() Tag {
	return a.next
}
