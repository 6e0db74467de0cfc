// Package linker concatenates the unlinked Programs an assembler run
// produces into one LinkedProgram: it assigns every label its final
// absolute address, builds the cross-unit global symbol table, and
// applies every text/rodata/data relocation (§4.8).
package linker

import (
	"fmt"

	"github.com/lookbusy1344/riscv-edu/asm"
	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/reloc"
)

// DebugEntry is one linked instruction's source provenance, naming which
// compilation unit it came from (the unlinked Program's debug info only
// knows its own line/source).
type DebugEntry struct {
	Unit   string
	Line   int
	Source string
}

// LinkedProgram is the assembler pipeline's final output: every label
// resolved to an absolute address, every relocation applied, ready to be
// loaded into a simulator's memory.
type LinkedProgram struct {
	Insts       []isa.MachineCode
	DebugInfo   []DebugEntry
	RodataBytes []byte
	DataBytes   []byte
	GlobalTable map[string]uint32
	StartPC     uint32
}

// unitPlacement records where one Program's segments landed in the final
// concatenation, and its labels translated to absolute addresses.
type unitPlacement struct {
	prog             *asm.Program
	textBase         uint32
	rodataBase       uint32
	dataBase         uint32
	translatedLabels map[string]uint32
}

func segmentBase(seg isa.Segment) uint32 {
	switch seg {
	case isa.SegRodata:
		return isa.ConstBegin
	case isa.SegData:
		return isa.StaticBegin
	default:
		return isa.TextBegin
	}
}

// Link runs §4.8 over an ordered list of unlinked Programs.
func Link(programs []*asm.Program) (*LinkedProgram, error) {
	placements := make([]*unitPlacement, len(programs))
	globalTable := make(map[string]uint32)

	var runningText, runningRodata, runningData uint32
	for i, p := range programs {
		pl := &unitPlacement{
			prog:             p,
			textBase:         runningText,
			rodataBase:       runningRodata,
			dataBase:         runningData,
			translatedLabels: make(map[string]uint32, len(p.Labels())),
		}
		for name, raw := range p.Labels() {
			seg := isa.ClassifySegment(uint32(raw))
			within := uint32(raw) - segmentBase(seg)
			var absolute uint32
			switch seg {
			case isa.SegText:
				absolute = isa.TextBegin + pl.textBase + within
			case isa.SegRodata:
				absolute = isa.ConstBegin + pl.rodataBase + within
			case isa.SegData:
				absolute = isa.StaticBegin + pl.dataBase + within
			}
			pl.translatedLabels[name] = absolute

			if p.GlobalLabels[name] {
				if existing, exists := globalTable[name]; exists && existing != absolute {
					return nil, fmt.Errorf("label %s defined global in two different files", name)
				}
				globalTable[name] = absolute
			}
		}
		placements[i] = pl

		runningText += p.TextSize
		runningRodata += p.RodataSize
		runningData += p.DataSize
	}

	startPC, ok := globalTable["main"]
	if !ok {
		return nil, fmt.Errorf("no global label %q found", "main")
	}
	if isa.ClassifySegment(startPC) != isa.SegText {
		return nil, fmt.Errorf("label main must be in the text segment")
	}

	linked := &LinkedProgram{
		GlobalTable: globalTable,
		StartPC:     startPC,
	}

	type pendingText struct {
		name      string
		symOffset int32
		fn        reloc.Func
		pc        uint32
		instIndex int
	}
	type pendingData struct {
		name      string
		symOffset int32
		seg       isa.Segment
		offset    int
	}
	var deferredText []pendingText
	var deferredData []pendingData

	for _, pl := range placements {
		p := pl.prog

		baseIdx := len(linked.Insts)
		linked.Insts = append(linked.Insts, p.Insts...)
		for _, d := range p.DebugInfo {
			linked.DebugInfo = append(linked.DebugInfo, DebugEntry{Unit: p.Name, Line: d.Line, Source: d.Source})
		}

		for _, rel := range p.TextRelocations {
			instIndex := baseIdx + int(rel.TextOffset/isa.InstructionLength)
			pc := isa.TextBegin + pl.textBase + rel.TextOffset

			if rel.Name == "" {
				mc, err := rel.Fn(linked.Insts[instIndex], pc, uint32(rel.SymOffset))
				if err != nil {
					return nil, err
				}
				linked.Insts[instIndex] = mc
				continue
			}

			if target, ok := pl.translatedLabels[rel.Name]; ok {
				mc, err := rel.Fn(linked.Insts[instIndex], pc, uint32(int64(target)+int64(rel.SymOffset)))
				if err != nil {
					return nil, err
				}
				linked.Insts[instIndex] = mc
				continue
			}

			deferredText = append(deferredText, pendingText{
				name: rel.Name, symOffset: rel.SymOffset, fn: rel.Fn, pc: pc, instIndex: instIndex,
			})
		}

		rodataBaseOffset := int(pl.rodataBase)
		linked.RodataBytes = append(linked.RodataBytes, p.RodataSegment...)
		for _, rel := range p.RodataRelocations {
			offset := rodataBaseOffset + int(rel.DataOffset)
			if target, ok := pl.translatedLabels[rel.Name]; ok {
				if err := reloc.PatchWord(linked.RodataBytes, offset, uint32(int64(target)+int64(rel.SymOffset))); err != nil {
					return nil, err
				}
				continue
			}
			deferredData = append(deferredData, pendingData{
				name: rel.Name, symOffset: rel.SymOffset, seg: isa.SegRodata, offset: offset,
			})
		}

		dataBaseOffset := int(pl.dataBase)
		linked.DataBytes = append(linked.DataBytes, p.DataSegment...)
		for _, rel := range p.DataRelocations {
			offset := dataBaseOffset + int(rel.DataOffset)
			if target, ok := pl.translatedLabels[rel.Name]; ok {
				if err := reloc.PatchWord(linked.DataBytes, offset, uint32(int64(target)+int64(rel.SymOffset))); err != nil {
					return nil, err
				}
				continue
			}
			deferredData = append(deferredData, pendingData{
				name: rel.Name, symOffset: rel.SymOffset, seg: isa.SegData, offset: offset,
			})
		}
	}

	for _, d := range deferredText {
		target, ok := globalTable[d.name]
		if !ok {
			return nil, fmt.Errorf("label %s used but not defined", d.name)
		}
		mc, err := d.fn(linked.Insts[d.instIndex], d.pc, uint32(int64(target)+int64(d.symOffset)))
		if err != nil {
			return nil, err
		}
		linked.Insts[d.instIndex] = mc
	}
	for _, d := range deferredData {
		target, ok := globalTable[d.name]
		if !ok {
			return nil, fmt.Errorf("label %s used but not defined", d.name)
		}
		bytes := linked.DataBytes
		if d.seg == isa.SegRodata {
			bytes = linked.RodataBytes
		}
		if err := reloc.PatchWord(bytes, d.offset, uint32(int64(target)+int64(d.symOffset))); err != nil {
			return nil, err
		}
	}

	return linked, nil
}
