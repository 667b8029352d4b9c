package cachebus

// FlatMemory is a flat byte-addressed backing store used by tests and the
// reference cache's miss path. The original emu.Memory this stands in for
// was not present in the retrieved teacher source (every other file that
// referenced it was); this is a fresh, minimal byte-addressed
// implementation rather than a copy of anything in the pack.
type FlatMemory struct {
	bytes []byte
}

// NewFlatMemory creates a zero-filled memory of size bytes.
func NewFlatMemory(size int) *FlatMemory {
	return &FlatMemory{bytes: make([]byte, size)}
}

// Read implements Backing.
func (m *FlatMemory) Read(addr uint64, size int) []byte {
	out := make([]byte, size)
	if int(addr)+size > len(m.bytes) {
		return out
	}
	copy(out, m.bytes[addr:int(addr)+size])
	return out
}

// Write implements Backing.
func (m *FlatMemory) Write(addr uint64, data []byte) {
	if int(addr)+len(data) > len(m.bytes) {
		return
	}
	copy(m.bytes[addr:], data)
}
