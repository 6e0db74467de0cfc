package instr

import (
	"fmt"

	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/lexer"
	"github.com/lookbusy1344/riscv-edu/reloc"
)

// uParse parses `op rd, imm`, where imm is the literal 20-bit value that
// lands in bits [31:12] — i.e. the already-shifted-right form a user
// writes for a bare LUI, not the full 32-bit result. A non-numeral
// operand is a label: its final bits depend on the linked address of
// both the label and this instruction, so it always registers a
// PCRelHiRelocator rather than ever resolving through this unit's
// pre-link label offsets. (The la/call/load/store pseudo expanders emit
// auipc with a literal 0 and register their relocation pair themselves.)
func uParse(toks []string, base isa.MachineCode, r Resolver) (isa.MachineCode, error) {
	if len(toks) != 2 {
		return base, fmt.Errorf("expected rd, imm, got %v", toks)
	}
	rd, err := parseRegTok(toks[0])
	if err != nil {
		return base, err
	}
	mc := base.SetField(isa.RD, rd)

	if val, ok, nerr := lexer.UserStringToInt(toks[1]); ok {
		if nerr != nil {
			return base, nerr
		}
		if val < 0 || val > 0xFFFFF {
			return base, fmt.Errorf("upper immediate %d out of range [0, 1048575]", val)
		}
		mc = mc.SetField(isa.IMM_31_12, uint32(val)&0xFFFFF)
		return mc, nil
	}

	sym, offTok, sign := symbolPart(toks[1])
	offset, err := resolveSymbolOffset(offTok, sign, r)
	if err != nil {
		return base, err
	}
	r.AddTextRelocation(sym, offset, reloc.PCRelHiRelocator)
	return mc, nil
}

func luiExec(mc isa.MachineCode, st State) (bool, error) {
	st.SetReg(int(mc.GetField(isa.RD)), mc.GetField(isa.IMM_31_12)<<12)
	advancePC(st)
	return true, nil
}

func auipcExec(mc isa.MachineCode, st State) (bool, error) {
	st.SetReg(int(mc.GetField(isa.RD)), st.PC()+mc.GetField(isa.IMM_31_12)<<12)
	advancePC(st)
	return true, nil
}

func upperInstructions() []*Instruction {
	return []*Instruction{
		{
			Mnemonic: "lui",
			Format:   isa.InstructionFormat{{isa.OPCODE, isa.OpLui}},
			Parse:    uParse,
			Exec:     luiExec,
		},
		{
			Mnemonic: "auipc",
			Format:   isa.InstructionFormat{{isa.OPCODE, isa.OpAuipc}},
			Parse:    uParse,
			Exec:     auipcExec,
		},
	}
}
