// Package instr is the instruction DSL: one Instruction entry per RV32IM
// opcode, pairing its encoding format with a text parser (tokens -> bits)
// and a semantic implementation (bits -> state change). This is the
// "instruction-format DSL" component of the design: rather than a class
// hierarchy of per-format base types, each opcode closes over small
// per-family helpers that decode its fields and invoke a kernel function.
package instr

import "github.com/lookbusy1344/riscv-edu/isa"

// State is everything an instruction's implementation needs from the
// simulator. Defined here (not in package sim) so instr has no
// dependency on sim; sim.Machine implements this interface, and instr
// never imports sim, avoiding a cycle between "how to execute" and
// "what executes it".
type State interface {
	GetReg(i int) uint32
	SetReg(i int, v uint32)
	PC() uint32
	SetPC(addr uint32)

	// ReadU8/ReadU16/ReadU32 return the raw (zero-extended into the
	// return type) bits at addr; sign-extension for signed loads is the
	// implementation's job, not the memory's.
	ReadU8(addr uint32) (uint8, error)
	ReadU16(addr uint32) (uint16, error)
	ReadU32(addr uint32) (uint32, error)

	WriteU8(addr uint32, v uint8) error
	WriteU16(addr uint32, v uint16) error
	WriteU32(addr uint32, v uint32) error

	// Ecall dispatches on the environment-call number in register a7
	// (§6.4). Returns halted=true if the call terminates the program.
	Ecall() (halted bool, err error)
}

// Exec is an instruction's semantic implementation: a pure function from
// the fetched word and the machine state to a state mutation. It returns
// continue=false when this instruction halts the simulator (an ecall
// exit, not a fault).
type Exec func(mc isa.MachineCode, st State) (cont bool, err error)
