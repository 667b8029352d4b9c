// Package loader packages a pre-decoded instruction stream into a Program
// the core can fetch from. It is not an ELF loader (out of scope, spec
// 1's Non-goals) — that responsibility belongs to an external pre-decoder;
// this stands in for it the way the teacher's loader/elf.go stands in for
// a real ELF reader, but operating on an already-decoded []isa.StaticInstruction
// instead of file bytes.
package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rsimgroup/rsim/isa"
)

// Program is what a test or the CLI hands to core.NewProcessor: an
// instruction stream addressed by PC, plus the initial architectural
// state core needs to start fetching.
type Program struct {
	EntryPoint uint64
	InitialSP  uint64
	Windows    int

	byPC map[uint64]*isa.StaticInstruction
	code []isa.StaticInstruction
}

// New packages code (already carrying its own PC fields) into a Program
// starting execution at entryPoint.
func New(code []isa.StaticInstruction, entryPoint, initialSP uint64, windows int) *Program {
	p := &Program{
		EntryPoint: entryPoint,
		InitialSP:  initialSP,
		Windows:    windows,
		byPC:       make(map[uint64]*isa.StaticInstruction, len(code)),
		code:       code,
	}
	for i := range p.code {
		p.byPC[p.code[i].PC] = &p.code[i]
	}
	return p
}

// Fetch returns the static instruction at pc, or (nil, false) past the
// end of the stream (a BADPC condition for the caller to raise).
func (p *Program) Fetch(pc uint64) (*isa.StaticInstruction, bool) {
	in, ok := p.byPC[pc]
	return in, ok
}

// Len reports the number of static instructions loaded.
func (p *Program) Len() int { return len(p.code) }

// jsonProgram is the wire shape an external pre-decoder emits: the
// instruction stream plus the initial architectural state, JSON-encoded.
type jsonProgram struct {
	EntryPoint   uint64                  `json:"entry_point"`
	InitialSP    uint64                  `json:"initial_sp"`
	Windows      int                     `json:"windows"`
	Instructions []isa.StaticInstruction `json:"instructions"`
}

// LoadJSON reads a pre-decoded instruction stream from path. The decode
// step itself (turning a target binary into this stream) happens outside
// this module, per the Non-goal excluding an ELF reader; this is the
// boundary format that external step hands off across.
func LoadJSON(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	var jp jsonProgram
	if err := json.Unmarshal(data, &jp); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	return New(jp.Instructions, jp.EntryPoint, jp.InitialSP, jp.Windows), nil
}
