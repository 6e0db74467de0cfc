// Package sim is the simulator (§4.9): Machine implements instr.State
// over a sparse byte-addressable Memory, drives fetch/decode/execute,
// and owns the undo journal, breakpoint set, and execution statistics.
package sim

import (
	"bufio"
	"fmt"
	"io"

	"github.com/lookbusy1344/riscv-edu/instr"
	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/linker"
)

const defaultUndoDepth = 1000

// spReg, a0Reg, a1Reg, a2Reg, a7Reg name the ABI register indices the
// simulator core touches directly (stack pointer init, ecall argument
// and dispatch registers), without pulling the whole abiNames table in.
const (
	spReg = 2
	a0Reg = 10
	a1Reg = 11
	a2Reg = 12
	a7Reg = 17
)

// Machine is the simulator state for one linked program (§4.9). It
// implements instr.State, so every already-written instr.Exec
// implementation runs against it unmodified.
type Machine struct {
	regs [32]uint32
	pc   uint32

	mem *Memory

	debugInfo []linker.DebugEntry
	textBase  uint32

	breakpoints map[uint32]bool
	undo        *undoJournal
	curDiff     *diff

	stdin      *bufio.Reader
	out        io.Writer
	lineBuffer []byte

	heapBreak uint32
	heapLimit uint32 // 0 disables the bound: sbrk grows without limit

	stackFloor uint32 // 0 disables the guard: sp may fall anywhere

	stats *Stats

	exitCode    int32
	exitRequest bool
}

// NewMachine builds a Machine ready to run a LinkedProgram: memory
// preloaded with its text/rodata/data, PC at its entry point, sp at the
// top of the stack region, heap break at isa.HeapBegin. undoDepth bounds
// the undo journal (config's debugger.undo_depth); zero or negative
// falls back to defaultUndoDepth.
func NewMachine(linked *linker.LinkedProgram, out io.Writer, stdin *bufio.Reader, undoDepth int) *Machine {
	text := make([]byte, len(linked.Insts)*isa.InstructionLength)
	for i, mc := range linked.Insts {
		v := uint32(mc)
		text[i*4] = byte(v)
		text[i*4+1] = byte(v >> 8)
		text[i*4+2] = byte(v >> 16)
		text[i*4+3] = byte(v >> 24)
	}

	if undoDepth <= 0 {
		undoDepth = defaultUndoDepth
	}

	m := &Machine{
		mem:         newMemory(text, linked.RodataBytes, linked.DataBytes),
		pc:          linked.StartPC,
		debugInfo:   linked.DebugInfo,
		breakpoints: make(map[uint32]bool),
		undo:        newUndoJournal(undoDepth),
		stdin:       stdin,
		out:         out,
		heapBreak:   isa.HeapBegin,
		stats:       newStats(),
	}
	m.regs[spReg] = isa.StackEnd
	return m
}

// SetLimits configures the heap growth bound and stack overflow guard
// from the host's configured execution limits (config's execution.
// stack_size/heap_size), mirroring the teacher's StackTrace.HaltOnOverflow
// and heap-segment bound. A zero size leaves the corresponding guard
// disabled, matching the unlimited behavior NewMachine starts with.
func (m *Machine) SetLimits(stackSize, heapSize uint32) {
	if heapSize > 0 {
		m.heapLimit = isa.HeapBegin + heapSize
	}
	if stackSize > 0 && stackSize <= isa.StackEnd {
		m.stackFloor = isa.StackEnd - stackSize
	}
}

// --- instr.State ---

func (m *Machine) GetReg(i int) uint32 {
	if i == 0 {
		return 0
	}
	return m.regs[i]
}

func (m *Machine) SetReg(i int, v uint32) {
	if i == 0 {
		return
	}
	if m.curDiff != nil {
		if _, seen := m.curDiff.regs[i]; !seen {
			m.curDiff.regs[i] = m.regs[i]
		}
	}
	m.regs[i] = v
}

func (m *Machine) PC() uint32 { return m.pc }

func (m *Machine) SetPC(addr uint32) { m.pc = addr }

func (m *Machine) ReadU8(addr uint32) (uint8, error) {
	v, err := m.mem.ReadU8(addr)
	if err != nil {
		return 0, m.fault(addr, 1, err)
	}
	return v, nil
}

func (m *Machine) ReadU16(addr uint32) (uint16, error) {
	v, err := m.mem.ReadU16(addr)
	if err != nil {
		return 0, m.fault(addr, 2, err)
	}
	return v, nil
}

func (m *Machine) ReadU32(addr uint32) (uint32, error) {
	v, err := m.mem.ReadU32(addr)
	if err != nil {
		return 0, m.fault(addr, 4, err)
	}
	return v, nil
}

func (m *Machine) WriteU8(addr uint32, v uint8) error {
	m.recordByte(addr)
	if err := m.mem.WriteU8(addr, v); err != nil {
		return m.fault(addr, 1, err)
	}
	return nil
}

func (m *Machine) WriteU16(addr uint32, v uint16) error {
	m.recordByte(addr)
	m.recordByte(addr + 1)
	if err := m.mem.WriteU16(addr, v); err != nil {
		return m.fault(addr, 2, err)
	}
	return nil
}

func (m *Machine) WriteU32(addr uint32, v uint32) error {
	m.recordByte(addr)
	m.recordByte(addr + 1)
	m.recordByte(addr + 2)
	m.recordByte(addr + 3)
	if err := m.mem.WriteU32(addr, v); err != nil {
		return m.fault(addr, 4, err)
	}
	return nil
}

func (m *Machine) recordByte(addr uint32) {
	if m.curDiff == nil {
		return
	}
	if _, seen := m.curDiff.mem[addr]; seen {
		return
	}
	old, _ := m.mem.ReadU8(addr)
	m.curDiff.mem[addr] = old
}

func (m *Machine) fault(addr uint32, size int, cause error) error {
	ae := &AccessError{PC: m.pc, Addr: addr, Size: size, reason: cause.Error()}
	if idx := int((m.pc - isa.TextBegin) / isa.InstructionLength); idx >= 0 && idx < len(m.debugInfo) {
		ae.Line = m.debugInfo[idx].Line
		ae.Source = m.debugInfo[idx].Source
	}
	return ae
}

// --- execution ---

// Step fetches, decodes, and executes the instruction at the current
// PC, recording its effects onto the undo journal. cont=false with a
// nil error is a clean halt (an ecall exit); cont=false with an error
// is a fault.
func (m *Machine) Step() (bool, error) {
	if !m.mem.Executable(m.pc) {
		return false, &AccessError{PC: m.pc, Addr: m.pc, Size: isa.InstructionLength, reason: "program counter left the text segment"}
	}

	raw, err := m.ReadU32(m.pc)
	if err != nil {
		return false, err
	}
	mc := isa.MachineCode(raw)

	inst, err := instr.Decode(mc)
	if err != nil {
		return false, m.fault(m.pc, isa.InstructionLength, err)
	}

	d := newDiff(m.pc)
	m.curDiff = d
	cont, err := inst.Exec(mc, m)
	m.curDiff = nil
	if err != nil {
		return false, err
	}
	if m.stackFloor != 0 && m.regs[spReg] < m.stackFloor {
		return false, &AccessError{PC: m.pc, Addr: m.regs[spReg], Size: 0, reason: "stack pointer overflowed into the heap"}
	}
	m.undo.push(d)
	m.stats.record(inst.Mnemonic)
	return cont, nil
}

// Run steps until Step reports a halt, an error, or maxSteps (if
// nonzero) is reached, halting early without error if PC is a
// breakpoint before the next step would execute it.
func (m *Machine) Run(maxSteps uint64) error {
	var steps uint64
	for {
		if m.breakpoints[m.pc] {
			return nil
		}
		cont, err := m.Step()
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		steps++
		if maxSteps > 0 && steps >= maxSteps {
			return fmt.Errorf("exceeded maximum cycle count %d", maxSteps)
		}
	}
}

// Undo pops the most recent diff and restores PC, registers, and memory
// bytes it recorded.
func (m *Machine) Undo() error {
	d, ok := m.undo.pop()
	if !ok {
		return fmt.Errorf("nothing to undo")
	}
	m.pc = d.pc
	for idx, old := range d.regs {
		m.regs[idx] = old
	}
	for addr, old := range d.mem {
		m.mem.bytes[addr] = old
	}
	return nil
}

func (m *Machine) UndoDepth() int { return m.undo.depth() }

// --- breakpoints ---

func (m *Machine) SetBreakpoint(addr uint32)   { m.breakpoints[addr] = true }
func (m *Machine) ClearBreakpoint(addr uint32) { delete(m.breakpoints, addr) }
func (m *Machine) HasBreakpoint(addr uint32) bool {
	return m.breakpoints[addr]
}

// --- introspection ---

func (m *Machine) Registers() [32]uint32 { return m.regs }
func (m *Machine) Stats() *Stats         { return m.stats }
func (m *Machine) ExitCode() int32       { return m.exitCode }

// DebugInfoAt returns the source line/text an instruction at pc came
// from, if the linked program carried debug info for it.
func (m *Machine) DebugInfoAt(pc uint32) (linker.DebugEntry, bool) {
	idx := int((pc - isa.TextBegin) / isa.InstructionLength)
	if idx < 0 || idx >= len(m.debugInfo) {
		return linker.DebugEntry{}, false
	}
	return m.debugInfo[idx], true
}

// Peek reads a byte without going through the undo/fault machinery, for
// debugger inspection commands that should not disturb execution state.
func (m *Machine) Peek(addr uint32) (byte, error) {
	return m.mem.ReadU8(addr)
}
