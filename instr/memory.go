package instr

import (
	"fmt"

	"github.com/lookbusy1344/riscv-edu/isa"
)

// iLoadParse parses `op rd, imm(rs1)` — the lexer already reduces the
// base-register syntax to a flat [rd, imm, rs1] token list (§4.1: the
// parentheses are delimiters, not tokens).
func iLoadParse(toks []string, base isa.MachineCode, r Resolver) (isa.MachineCode, error) {
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

func loadKernel(width int, signed bool) Exec {
	return func(mc isa.MachineCode, st State) (bool, error) {
		base := st.GetReg(int(mc.GetField(isa.RS1)))
		imm := isa.SignExtend(mc.GetField(isa.IMM_11_0), 12)
		addr := uint32(int32(base) + imm)

		var raw uint32
		var bits uint8
		var err error
		switch width {
		case 1:
			var b uint8
			b, err = st.ReadU8(addr)
			raw, bits = uint32(b), 8
		case 2:
			var h uint16
			h, err = st.ReadU16(addr)
			raw, bits = uint32(h), 16
		case 4:
			raw, err = st.ReadU32(addr)
			bits = 32
		}
		if err != nil {
			return false, err
		}

		var value uint32
		if signed && bits < 32 {
			value = uint32(isa.SignExtend(raw, bits))
		} else {
			value = raw
		}
		st.SetReg(int(mc.GetField(isa.RD)), value)
		advancePC(st)
		return true, nil
	}
}

func loadInstructions() []*Instruction {
	type def struct {
		mnemonic string
		funct3   uint32
		width    int
		signed   bool
	}
	defs := []def{
		{"lb", 0x0, 1, true},
		{"lh", 0x1, 2, true},
		{"lw", 0x2, 4, false},
		{"lbu", 0x4, 1, false},
		{"lhu", 0x5, 2, false},
	}
	insts := make([]*Instruction, 0, len(defs))
	for _, d := range defs {
		d := d
		insts = append(insts, &Instruction{
			Mnemonic: d.mnemonic,
			Format: isa.InstructionFormat{
				{isa.OPCODE, isa.OpLoad},
				{isa.FUNCT3, d.funct3},
			},
			Parse: iLoadParse,
			Exec:  loadKernel(d.width, d.signed),
		})
	}
	return insts
}

// sStoreParse parses `op rs2, imm(rs1)`.
func sStoreParse(toks []string, base isa.MachineCode, r Resolver) (isa.MachineCode, error) {
	if len(toks) != 3 {
		return base, fmt.Errorf("expected rs2, imm(rs1), got %v", toks)
	}
	rs2, err := parseRegTok(toks[0])
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
	u := uint32(imm) & 0xFFF
	mc := base.SetField(isa.RS1, rs1)
	mc = mc.SetField(isa.RS2, rs2)
	mc = mc.SetField(isa.IMM_4_0, u&0x1F)
	mc = mc.SetField(isa.IMM_11_5, u>>5)
	return mc, nil
}

func storeKernel(width int) Exec {
	return func(mc isa.MachineCode, st State) (bool, error) {
		base := st.GetReg(int(mc.GetField(isa.RS1)))
		lo := mc.GetField(isa.IMM_4_0)
		hi := mc.GetField(isa.IMM_11_5)
		imm := isa.SignExtend(hi<<5|lo, 12)
		addr := uint32(int32(base) + imm)
		value := st.GetReg(int(mc.GetField(isa.RS2)))

		var err error
		switch width {
		case 1:
			err = st.WriteU8(addr, uint8(value))
		case 2:
			err = st.WriteU16(addr, uint16(value))
		case 4:
			err = st.WriteU32(addr, value)
		}
		if err != nil {
			return false, err
		}
		advancePC(st)
		return true, nil
	}
}

func storeInstructions() []*Instruction {
	type def struct {
		mnemonic string
		funct3   uint32
		width    int
	}
	defs := []def{
		{"sb", 0x0, 1},
		{"sh", 0x1, 2},
		{"sw", 0x2, 4},
	}
	insts := make([]*Instruction, 0, len(defs))
	for _, d := range defs {
		d := d
		insts = append(insts, &Instruction{
			Mnemonic: d.mnemonic,
			Format: isa.InstructionFormat{
				{isa.OPCODE, isa.OpStore},
				{isa.FUNCT3, d.funct3},
			},
			Parse: sStoreParse,
			Exec:  storeKernel(d.width),
		})
	}
	return insts
}
