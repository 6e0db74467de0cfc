// Package asm is the two-pass assembler: pass one lexes source lines,
// tracks labels and directives, expands pseudo-instructions into TAL
// (true assembly language) token lists, and pass two turns each TAL line
// into a MachineCode via the instr table. Program is both passes' shared,
// mutable working state and the instr.Resolver the instruction parsers
// consult for label values.
package asm

import (
	"fmt"

	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/reloc"
)

// DebugInfo pairs an emitted instruction with the source line it came
// from, for runtime error context and -dump-symbols style tooling.
type DebugInfo struct {
	Line   int
	Source string
}

// textRelocation is a deferred text-segment fixup: once Name resolves to
// an absolute address (possibly in another linked unit), Fn patches the
// instruction at TextOffset using that address plus SymOffset.
type textRelocation struct {
	Name       string
	SymOffset  int32
	Fn         reloc.Func
	TextOffset uint32
}

// dataRelocation is a deferred `.word label` fixup: once Name resolves,
// the four bytes at DataOffset within the segment are overwritten
// little-endian with address+SymOffset.
type dataRelocation struct {
	Name       string
	SymOffset  int32
	DataOffset uint32
}

// talLine is one pass-one output entry: the expanded TAL instruction for
// a single emitted instruction, plus its originating source context.
type talLine struct {
	Mnemonic string
	Operands []string
	Debug    DebugInfo
}

// Program is the assembler's output for one compilation unit (§3). It is
// created empty, populated by pass one, then mutated further by pass two
// (which fills Insts/DebugInfo from the TAL list recorded by pass one).
type Program struct {
	Name string

	Insts []isa.MachineCode

	labels       map[string]int32
	equivs       map[string]string
	equivLocked  map[string]bool // true for .equiv-defined names: redefinition forbidden
	GlobalLabels map[string]bool

	RodataSegment []byte
	DataSegment   []byte

	TextRelocations   []textRelocation
	RodataRelocations []dataRelocation
	DataRelocations   []dataRelocation

	DebugInfo []DebugInfo

	TextSize   uint32
	RodataSize uint32
	DataSize   uint32

	segment isa.Segment
	talLines []talLine

	Errors ErrorList
}

// NewProgram creates an empty compilation unit. The active segment
// starts as text, matching every example program's implicit default.
func NewProgram(name string) *Program {
	return &Program{
		Name:         name,
		labels:       make(map[string]int32),
		equivs:       make(map[string]string),
		equivLocked:  make(map[string]bool),
		GlobalLabels: make(map[string]bool),
		segment:      isa.SegText,
	}
}

// SetSegment switches the active segment for subsequent labels/emission.
func (p *Program) SetSegment(seg isa.Segment) {
	p.segment = seg
}

// Segment reports the currently active segment.
func (p *Program) Segment() isa.Segment {
	return p.segment
}

// CurrentOffset returns the write cursor for the active segment, biased
// by the memory-map constant for that segment so that the offset alone
// tells the linker (and isa.ClassifySegment) which segment it names.
func (p *Program) CurrentOffset() uint32 {
	switch p.segment {
	case isa.SegRodata:
		return isa.ConstBegin + p.RodataSize
	case isa.SegData:
		return isa.StaticBegin + p.DataSize
	default:
		return p.TextSize
	}
}

// AddLabel records a label at the current offset, failing on redefinition
// within this unit. The check is explicit rather than derived from a map
// "already present" return, per the spec's note that duplicate-label
// detection must not rely on incidental map semantics.
func (p *Program) AddLabel(name string, line int, source string) error {
	if _, exists := p.labels[name]; exists {
		return &Error{Line: line, Source: source, Kind: LabelError, Message: fmt.Sprintf("label %s defined twice", name)}
	}
	p.labels[name] = int32(p.CurrentOffset())
	return nil
}

// AddEquiv records a `.equiv`/`.equ`/`.set` alias. locked=true (a true
// `.equiv`) forbids ever redefining name again, in this unit or via a
// later `.equiv`/`.equ`/`.set`.
func (p *Program) AddEquiv(name, rhs string, locked bool, line int, source string) error {
	if p.equivLocked[name] {
		return &Error{Line: line, Source: source, Kind: LabelError, Message: fmt.Sprintf(".equiv %s redefines a locked alias", name)}
	}
	p.equivs[name] = rhs
	if locked {
		p.equivLocked[name] = true
	}
	return nil
}

// Globl exports name from this unit.
func (p *Program) Globl(name string) {
	p.GlobalLabels[name] = true
}

// appendTAL records one expanded instruction's TAL tokens for pass two,
// and advances the text cursor as if it were already emitted (pass two
// fills in the real MachineCode later, but label offsets recorded during
// pass one must already account for every instruction ahead of them).
func (p *Program) appendTAL(mnemonic string, operands []string, line int, source string) {
	p.talLines = append(p.talLines, talLine{
		Mnemonic: mnemonic, Operands: operands,
		Debug: DebugInfo{Line: line, Source: source},
	})
	p.TextSize += isa.InstructionLength
}

// addTextRelocationAt registers a deferred text fixup at an explicit
// planned offset, for pseudo-instruction expanders (pass one) that know
// the future offset of an instruction before it is appended. Ordinary
// instruction parsers (pass two) instead go through AddTextRelocation,
// which derives the offset from how many real instructions have been
// appended so far; both agree because pass two visits TAL lines in the
// exact order pass one produced them.
func (p *Program) addTextRelocationAt(offset uint32, name string, symOffset int32, fn reloc.Func) {
	p.TextRelocations = append(p.TextRelocations, textRelocation{
		Name: name, SymOffset: symOffset, Fn: fn, TextOffset: offset,
	})
}

// EmitBytes appends raw bytes to the active data/rodata segment.
func (p *Program) EmitBytes(b []byte) {
	switch p.segment {
	case isa.SegRodata:
		p.RodataSegment = append(p.RodataSegment, b...)
		p.RodataSize += uint32(len(b))
	case isa.SegData:
		p.DataSegment = append(p.DataSegment, b...)
		p.DataSize += uint32(len(b))
	}
}

// EmitWord appends a little-endian 32-bit value to the active segment.
func (p *Program) EmitWord(v uint32) {
	p.EmitBytes([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// EmitWordLabel appends a placeholder word and registers a data
// relocation against sym, resolved at link time (`.word label`).
func (p *Program) EmitWordLabel(sym string, symOffset int32, line int, source string) error {
	offset := p.CurrentOffset()
	rel := dataRelocation{Name: sym, SymOffset: symOffset, DataOffset: offsetWithinSegment(p.segment, offset)}
	switch p.segment {
	case isa.SegRodata:
		p.RodataRelocations = append(p.RodataRelocations, rel)
	case isa.SegData:
		p.DataRelocations = append(p.DataRelocations, rel)
	default:
		return &Error{Line: line, Source: source, Kind: DirectiveError, Message: ".word label is only valid in .data or .rodata"}
	}
	p.EmitWord(0)
	return nil
}

func offsetWithinSegment(seg isa.Segment, offset uint32) uint32 {
	switch seg {
	case isa.SegRodata:
		return offset - isa.ConstBegin
	case isa.SegData:
		return offset - isa.StaticBegin
	default:
		return offset
	}
}

// Align pads the active segment with zero bytes until its offset is a
// multiple of 2^k.
func (p *Program) Align(k uint) {
	modulus := uint32(1) << k
	cur := p.CurrentOffset() - segmentBase(p.segment)
	if rem := cur % modulus; rem != 0 {
		p.EmitBytes(make([]byte, modulus-rem))
	}
}

func segmentBase(seg isa.Segment) uint32 {
	switch seg {
	case isa.SegRodata:
		return isa.ConstBegin
	case isa.SegData:
		return isa.StaticBegin
	default:
		return 0
	}
}

// Lookup implements instr.Resolver: it is only ever consulted during pass
// two, by which point resolveEquivChains has merged every resolvable .equiv
// into labels.
func (p *Program) Lookup(name string) (int32, bool) {
	v, ok := p.labels[name]
	return v, ok
}

// Labels exposes this unit's label table (biased per-segment offsets, not
// yet translated to absolute addresses) for the linker.
func (p *Program) Labels() map[string]int32 {
	return p.labels
}

// CurrentTextOffset implements instr.Resolver.
func (p *Program) CurrentTextOffset() uint32 {
	return uint32(len(p.Insts)) * isa.InstructionLength
}

// AddTextRelocation implements instr.Resolver.
func (p *Program) AddTextRelocation(name string, symOffset int32, fn reloc.Func) {
	p.TextRelocations = append(p.TextRelocations, textRelocation{
		Name: name, SymOffset: symOffset, Fn: fn, TextOffset: p.CurrentTextOffset(),
	})
}
