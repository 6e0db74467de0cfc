package sim

import (
	"fmt"

	"github.com/lookbusy1344/riscv-edu/isa"
)

// permission is a bitset of what a memory region allows.
type permission uint8

const (
	permRead permission = 1 << iota
	permWrite
	permExecute
)

// region is one named, permission-tagged span of the address space
// (§6.1). Unlike a fixed-size emulator heap, spans here are wide windows
// over the memory map; actual storage is sparse (Memory.bytes only holds
// addresses a program has touched).
type region struct {
	name  string
	start uint32
	end   uint32 // exclusive
	perm  permission
}

func (r region) contains(addr uint32) bool {
	return addr >= r.start && addr < r.end
}

// Memory is sparse byte-addressable storage over the RV32 memory map.
// Only bytes a program actually writes (or that were preloaded from an
// assembled segment) occupy the backing map; everything else reads as
// zero. Region permissions bound what counts as a valid access so that
// Machine can raise AccessError the way an RV32 fault would.
type Memory struct {
	regions []region
	bytes   map[uint32]byte
}

// newMemory lays out the text/rodata/data regions per §6.1 and preloads
// the assembled segment bytes. The data region also covers the heap and
// stack: all three grow within the same writable span between
// isa.StaticBegin and isa.StackEnd, so sbrk and push/pop never need a
// region of their own.
func newMemory(text, rodata, data []byte) *Memory {
	m := &Memory{bytes: make(map[uint32]byte)}
	m.regions = []region{
		// text is writable as well as executable: the reference RV32
		// simulators this one tracks (venus et al.) run on flat writable
		// memory, and scenario 2 (§8) stores directly into a low address
		// that falls in this region.
		{name: "text", start: isa.TextBegin, end: isa.ConstBegin, perm: permRead | permWrite | permExecute},
		{name: "rodata", start: isa.ConstBegin, end: isa.StaticBegin, perm: permRead},
		{name: "data", start: isa.StaticBegin, end: isa.StackEnd + 4, perm: permRead | permWrite},
	}
	m.preload(isa.TextBegin, text)
	m.preload(isa.ConstBegin, rodata)
	m.preload(isa.StaticBegin, data)
	return m
}

func (m *Memory) preload(base uint32, data []byte) {
	for i, b := range data {
		m.bytes[base+uint32(i)] = b
	}
}

func (m *Memory) findRegion(addr uint32) (region, bool) {
	for _, r := range m.regions {
		if r.contains(addr) {
			return r, true
		}
	}
	return region{}, false
}

func (m *Memory) checkPerm(addr uint32, need permission) error {
	r, ok := m.findRegion(addr)
	if !ok {
		return fmt.Errorf("address %#x is outside the mapped address space", addr)
	}
	if r.perm&need == 0 {
		return fmt.Errorf("address %#x (%s segment) does not permit this access", addr, r.name)
	}
	return nil
}

// ReadU8 reads one byte, defaulting to zero for mapped-but-untouched
// addresses.
func (m *Memory) ReadU8(addr uint32) (uint8, error) {
	if err := m.checkPerm(addr, permRead); err != nil {
		return 0, err
	}
	return m.bytes[addr], nil
}

func (m *Memory) ReadU16(addr uint32) (uint16, error) {
	lo, err := m.ReadU8(addr)
	if err != nil {
		return 0, err
	}
	hi, err := m.ReadU8(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func (m *Memory) ReadU32(addr uint32) (uint32, error) {
	lo, err := m.ReadU16(addr)
	if err != nil {
		return 0, err
	}
	hi, err := m.ReadU16(addr + 2)
	if err != nil {
		return 0, err
	}
	return uint32(lo) | uint32(hi)<<16, nil
}

func (m *Memory) WriteU8(addr uint32, v uint8) error {
	if err := m.checkPerm(addr, permWrite); err != nil {
		return err
	}
	m.bytes[addr] = v
	return nil
}

func (m *Memory) WriteU16(addr uint32, v uint16) error {
	if err := m.WriteU8(addr, uint8(v)); err != nil {
		return err
	}
	return m.WriteU8(addr+1, uint8(v>>8))
}

func (m *Memory) WriteU32(addr uint32, v uint32) error {
	if err := m.WriteU16(addr, uint16(v)); err != nil {
		return err
	}
	return m.WriteU16(addr+2, uint16(v>>16))
}

// Executable reports whether addr may be fetched from, for Step's
// instruction-fetch check.
func (m *Memory) Executable(addr uint32) bool {
	r, ok := m.findRegion(addr)
	return ok && r.perm&permExecute != 0
}

// AccessError is the fault a bad memory access raises (§4.9): the
// simulator halts but records where and why, annotated with the
// originating source line when debug info for pc is available.
type AccessError struct {
	PC     uint32
	Addr   uint32
	Size   int
	Line   int
	Source string
	reason string
}

func (e *AccessError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("access error at pc=%#08x (line %d: %s): %s", e.PC, e.Line, e.Source, e.reason)
	}
	return fmt.Sprintf("access error at pc=%#08x: %s", e.PC, e.reason)
}
