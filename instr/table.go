package instr

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/riscv-edu/isa"
)

// Parse turns an operand token list into a filled MachineCode, starting
// from the fixed-bit skeleton base = Instruction.Format.Fill().
type Parse func(toks []string, base isa.MachineCode, r Resolver) (isa.MachineCode, error)

// Instruction is one table entry: a mnemonic plus its encoding format,
// its text-to-bits parser, and its bits-to-state-change implementation.
// This single struct is the whole "instruction type hierarchy" the
// design notes ask to flatten: no Instruction subclasses, just data plus
// two closures.
type Instruction struct {
	Mnemonic string
	Format   isa.InstructionFormat
	Parse    Parse
	Exec     Exec
}

// Table holds one immutable Instruction entry per implemented RV32IM
// opcode, built once at package init and never mutated afterward
// (spec's "singletons -> owned values": no global mutable instruction
// registry, just a plain map built by a pure function).
var Table = buildTable()

// Lookup returns the Instruction for a mnemonic (case-insensitive), and
// whether it exists. Pass one (pseudo-expansion) uses this to decide
// whether a token is a real TAL instruction; pass two uses it to parse.
func Lookup(mnemonic string) (*Instruction, bool) {
	inst, ok := Table[strings.ToLower(mnemonic)]
	return inst, ok
}

// Decode finds the unique Instruction whose Format matches mc, scanning
// the table per §4.9 ("find the unique matching format by scanning the
// instruction table's FieldEqual constraints").
func Decode(mc isa.MachineCode) (*Instruction, error) {
	var found *Instruction
	for _, inst := range Table {
		if inst.Format.Matches(mc) {
			if found != nil {
				return nil, fmt.Errorf("ambiguous decode for %s: matches both %s and %s", mc, found.Mnemonic, inst.Mnemonic)
			}
			found = inst
		}
	}
	if found == nil {
		return nil, fmt.Errorf("no instruction matches encoding %s", mc)
	}
	return found, nil
}

func buildTable() map[string]*Instruction {
	t := make(map[string]*Instruction)
	add := func(insts ...*Instruction) {
		for _, in := range insts {
			t[strings.ToLower(in.Mnemonic)] = in
		}
	}

	add(rTypeInstructions()...)
	add(iTypeArithInstructions()...)
	add(iTypeShiftInstructions()...)
	add(loadInstructions()...)
	add(storeInstructions()...)
	add(branchInstructions()...)
	add(upperInstructions()...)
	add(jumpInstructions()...)
	add(multiplyDivideInstructions()...)
	add(systemInstructions()...)

	return t
}
