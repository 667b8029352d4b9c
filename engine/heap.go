package engine

import "container/heap"

// Heap is a binary min-heap over T ordered by a caller-supplied comparator.
// The design note "Heaps ordered by (cycle, tag)" asks for a parameterized
// comparator rather than a hardcoded tiebreak so tests can swap it; Less is
// that comparator.
type Heap[T any] struct {
	items []T
	less  func(a, b T) bool
}

// NewHeap creates an empty heap using less as the ordering predicate.
func NewHeap[T any](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{less: less}
}

func (h *Heap[T]) Len() int            { return len(h.items) }
func (h *Heap[T]) Less(i, j int) bool  { return h.less(h.items[i], h.items[j]) }
func (h *Heap[T]) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *Heap[T]) Push(x interface{})  { h.items = append(h.items, x.(T)) }
func (h *Heap[T]) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// Insert adds an item, restoring the heap invariant.
func (h *Heap[T]) Insert(item T) {
	heap.Push(h, item)
}

// Peek returns the minimum element without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	return h.items[0], true
}

// PopMin removes and returns the minimum element.
func (h *Heap[T]) PopMin() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	return heap.Pop(h).(T), true
}

// Size returns the number of queued items.
func (h *Heap[T]) Size() int { return len(h.items) }

// DrainUpTo pops every element whose key is "due" according to ready, in
// ascending order, calling fn for each. ready(item) must become
// monotonically false-to-true-stable as the heap drains (e.g. "cycle <=
// now"); DrainUpTo stops at the first non-ready minimum.
func (h *Heap[T]) DrainUpTo(ready func(item T) bool, fn func(item T)) {
	for {
		item, ok := h.Peek()
		if !ok || !ready(item) {
			return
		}
		h.PopMin()
		fn(item)
	}
}
