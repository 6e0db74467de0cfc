package instr

import (
	"fmt"

	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/lexer"
	"github.com/lookbusy1344/riscv-edu/reloc"
)

// jParse parses `op rd, label` for JAL. As with branches, a bare numeral
// is a pre-computed PC-relative offset; a label defers to JALRelocator.
func jParse(toks []string, base isa.MachineCode, r Resolver) (isa.MachineCode, error) {
	if len(toks) != 2 {
		return base, fmt.Errorf("expected rd, label, got %v", toks)
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
		return encodeJALOffset(mc, val)
	}

	sym, offTok, sign := symbolPart(toks[1])
	offset, err := resolveSymbolOffset(offTok, sign, r)
	if err != nil {
		return base, err
	}
	r.AddTextRelocation(sym, offset, reloc.JALRelocator)
	return mc, nil
}

func encodeJALOffset(mc isa.MachineCode, offset int32) (isa.MachineCode, error) {
	if offset < -(1<<20) || offset >= (1<<20) {
		return mc, fmt.Errorf("jal offset %d out of range [-1048576, 1048575]", offset)
	}
	if offset%2 != 0 {
		return mc, fmt.Errorf("jal offset %d is not even", offset)
	}
	u := uint32(offset)
	mc = mc.SetField(isa.IMM_J20, (u>>20)&0x1)
	mc = mc.SetField(isa.IMM_J101, (u>>1)&0x3FF)
	mc = mc.SetField(isa.IMM_J11, (u>>11)&0x1)
	mc = mc.SetField(isa.IMM_J1912, (u>>12)&0xFF)
	return mc, nil
}

func jalExec(mc isa.MachineCode, st State) (bool, error) {
	u := mc.GetField(isa.IMM_J20)<<20 | mc.GetField(isa.IMM_J1912)<<12 |
		mc.GetField(isa.IMM_J11)<<11 | mc.GetField(isa.IMM_J101)<<1
	offset := isa.SignExtend(u, 21)
	pc := st.PC()
	st.SetReg(int(mc.GetField(isa.RD)), pc+isa.InstructionLength)
	st.SetPC(uint32(int32(pc) + offset))
	return true, nil
}

// jalrParse parses `op rd, imm(rs1)`.
func jalrParse(toks []string, base isa.MachineCode, r Resolver) (isa.MachineCode, error) {
	if len(toks) != 3 {
		return base, fmt.Errorf("expected rd, imm(rs1), got %v", toks)
	}
	rd, err := parseRegTok(toks[0])
	if err != nil {
		return base, err
	}
	imm, _, err := GetImmediate(toks[1], -2048, 2047, r, nil)
	if err != nil {
		return base, err
	}
	rs1, err := parseRegTok(toks[2])
	if err != nil {
		return base, err
	}
	mc := base.SetField(isa.RD, rd)
	mc = mc.SetField(isa.RS1, rs1)
	mc = mc.SetField(isa.IMM_11_0, uint32(imm)&0xFFF)
	return mc, nil
}

func jalrExec(mc isa.MachineCode, st State) (bool, error) {
	base := st.GetReg(int(mc.GetField(isa.RS1)))
	imm := isa.SignExtend(mc.GetField(isa.IMM_11_0), 12)
	pc := st.PC()
	target := uint32(int32(base)+imm) &^ 1
	st.SetReg(int(mc.GetField(isa.RD)), pc+isa.InstructionLength)
	st.SetPC(target)
	return true, nil
}

func jumpInstructions() []*Instruction {
	return []*Instruction{
		{
			Mnemonic: "jal",
			Format:   isa.InstructionFormat{{isa.OPCODE, isa.OpJal}},
			Parse:    jParse,
			Exec:     jalExec,
		},
		{
			Mnemonic: "jalr",
			Format:   isa.InstructionFormat{{isa.OPCODE, isa.OpJalr}, {isa.FUNCT3, 0x0}},
			Parse:    jalrParse,
			Exec:     jalrExec,
		},
	}
}
