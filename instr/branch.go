package instr

import (
	"fmt"

	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/lexer"
	"github.com/lookbusy1344/riscv-edu/reloc"
)

// compareUnsigned implements §4.6's note that unsigned compares xor both
// operands with the sign bit before a signed compare, rather than
// special-casing uint32 comparisons.
func compareUnsigned(a, b uint32, lt bool) bool {
	const signBit = uint32(1) << 31
	sa := int32(a ^ signBit)
	sb := int32(b ^ signBit)
	if lt {
		return sa < sb
	}
	return sa >= sb
}

// bParse parses `op rs1, rs2, label`. A bare numeral is accepted too (a
// pre-computed PC-relative offset) and encoded directly; a label always
// goes through a BranchRelocator registration — applied by the linker
// once addresses are final, whether the label turns out to be local or
// cross-unit (§4.8 treats both the same way at apply time).
func bParse(toks []string, base isa.MachineCode, r Resolver) (isa.MachineCode, error) {
	if len(toks) != 3 {
		return base, fmt.Errorf("expected rs1, rs2, label, got %v", toks)
	}
	rs1, err := parseRegTok(toks[0])
	if err != nil {
		return base, err
	}
	rs2, err := parseRegTok(toks[1])
	if err != nil {
		return base, err
	}
	mc := base.SetField(isa.RS1, rs1)
	mc = mc.SetField(isa.RS2, rs2)

	if val, ok, nerr := lexer.UserStringToInt(toks[2]); ok {
		if nerr != nil {
			return base, nerr
		}
		return encodeBranchOffset(mc, val)
	}

	sym, offTok, sign := symbolPart(toks[2])
	offset, err := resolveSymbolOffset(offTok, sign, r)
	if err != nil {
		return base, err
	}
	r.AddTextRelocation(sym, offset, reloc.BranchRelocator)
	return mc, nil
}

// encodeBranchOffset writes a resolved PC-relative byte offset into the
// B-type split fields, matching reloc.BranchRelocator's bit layout.
func encodeBranchOffset(mc isa.MachineCode, offset int32) (isa.MachineCode, error) {
	if offset < -4096 || offset > 4095 {
		return mc, fmt.Errorf("branch offset %d out of range [-4096, 4095]", offset)
	}
	if offset%2 != 0 {
		return mc, fmt.Errorf("branch offset %d is not even", offset)
	}
	u := uint32(offset)
	mc = mc.SetField(isa.IMM_B12, (u>>12)&0x1)
	mc = mc.SetField(isa.IMM_B105, (u>>5)&0x3F)
	mc = mc.SetField(isa.IMM_B41, (u>>1)&0xF)
	mc = mc.SetField(isa.IMM_B11, (u>>11)&0x1)
	return mc, nil
}

func branchKernel(cmp func(a, b uint32) bool) Exec {
	return func(mc isa.MachineCode, st State) (bool, error) {
		a := st.GetReg(int(mc.GetField(isa.RS1)))
		b := st.GetReg(int(mc.GetField(isa.RS2)))

		u := mc.GetField(isa.IMM_B12)<<12 | mc.GetField(isa.IMM_B11)<<11 |
			mc.GetField(isa.IMM_B105)<<5 | mc.GetField(isa.IMM_B41)<<1
		offset := isa.SignExtend(u, 13)

		if cmp(a, b) {
			st.SetPC(uint32(int32(st.PC()) + offset))
		} else {
			advancePC(st)
		}
		return true, nil
	}
}

func branchInstructions() []*Instruction {
	type def struct {
		mnemonic string
		funct3   uint32
		cmp      func(a, b uint32) bool
	}
	defs := []def{
		{"beq", 0x0, func(a, b uint32) bool { return a == b }},
		{"bne", 0x1, func(a, b uint32) bool { return a != b }},
		{"blt", 0x4, func(a, b uint32) bool { return int32(a) < int32(b) }},
		{"bge", 0x5, func(a, b uint32) bool { return int32(a) >= int32(b) }},
		{"bltu", 0x6, func(a, b uint32) bool { return compareUnsigned(a, b, true) }},
		{"bgeu", 0x7, func(a, b uint32) bool { return compareUnsigned(a, b, false) }},
	}
	insts := make([]*Instruction, 0, len(defs))
	for _, d := range defs {
		d := d
		insts = append(insts, &Instruction{
			Mnemonic: d.mnemonic,
			Format: isa.InstructionFormat{
				{isa.OPCODE, isa.OpBranch},
				{isa.FUNCT3, d.funct3},
			},
			Parse: bParse,
			Exec:  branchKernel(d.cmp),
		})
	}
	return insts
}
