package instr

import (
	"fmt"

	"github.com/lookbusy1344/riscv-edu/isa"
)

// parseRegTok parses a register operand token and returns its index.
func parseRegTok(tok string) (uint32, error) {
	r, err := isa.ParseRegister(tok)
	if err != nil {
		return 0, err
	}
	return uint32(r), nil
}

// advancePC is the common "arithmetic/logical instructions just move to
// the next word" tail shared by every non-control-flow Exec.
func advancePC(st State) {
	st.SetPC(st.PC() + isa.InstructionLength)
}

// rKernel builds the Exec for an R-type op rd, rs1, rs2 instruction from
// a pure (a, b) -> result function, per the design note: a per-family
// "decode fields + invoke kernel" helper instead of a class hierarchy.
func rKernel(f func(a, b uint32) uint32) Exec {
	return func(mc isa.MachineCode, st State) (bool, error) {
		a := st.GetReg(int(mc.GetField(isa.RS1)))
		b := st.GetReg(int(mc.GetField(isa.RS2)))
		st.SetReg(int(mc.GetField(isa.RD)), f(a, b))
		advancePC(st)
		return true, nil
	}
}

// rParse parses `op rd, rs1, rs2`.
func rParse(toks []string, base isa.MachineCode, _ Resolver) (isa.MachineCode, error) {
	if len(toks) != 3 {
		return base, fmt.Errorf("expected rd, rs1, rs2, got %v", toks)
	}
	rd, err := parseRegTok(toks[0])
	if err != nil {
		return base, err
	}
	rs1, err := parseRegTok(toks[1])
	if err != nil {
		return base, err
	}
	rs2, err := parseRegTok(toks[2])
	if err != nil {
		return base, err
	}
	mc := base.SetField(isa.RD, rd)
	mc = mc.SetField(isa.RS1, rs1)
	mc = mc.SetField(isa.RS2, rs2)
	return mc, nil
}

func rTypeInstructions() []*Instruction {
	type def struct {
		mnemonic      string
		funct3        uint32
		funct7        uint32
		f             func(a, b uint32) uint32
	}
	defs := []def{
		{"add", 0x0, 0x00, func(a, b uint32) uint32 { return a + b }},
		{"sub", 0x0, 0x20, func(a, b uint32) uint32 { return a - b }},
		{"sll", 0x1, 0x00, func(a, b uint32) uint32 { return a << (b & 0x1F) }},
		{"slt", 0x2, 0x00, func(a, b uint32) uint32 { return boolToU32(int32(a) < int32(b)) }},
		{"sltu", 0x3, 0x00, func(a, b uint32) uint32 { return boolToU32(a < b) }},
		{"xor", 0x4, 0x00, func(a, b uint32) uint32 { return a ^ b }},
		{"srl", 0x5, 0x00, func(a, b uint32) uint32 { return a >> (b & 0x1F) }},
		{"sra", 0x5, 0x20, func(a, b uint32) uint32 { return uint32(int32(a) >> (b & 0x1F)) }},
		{"or", 0x6, 0x00, func(a, b uint32) uint32 { return a | b }},
		{"and", 0x7, 0x00, func(a, b uint32) uint32 { return a & b }},
	}

	insts := make([]*Instruction, 0, len(defs))
	for _, d := range defs {
		d := d
		insts = append(insts, &Instruction{
			Mnemonic: d.mnemonic,
			Format: isa.InstructionFormat{
				{isa.OPCODE, isa.OpOp},
				{isa.FUNCT3, d.funct3},
				{isa.FUNCT7, d.funct7},
			},
			Parse: rParse,
			Exec:  rKernel(d.f),
		})
	}
	return insts
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// iArithKernel builds the Exec for an I-type arithmetic op rd, rs1, imm
// instruction from a (a, imm) -> result function over the sign-extended
// 12-bit immediate.
func iArithKernel(f func(a uint32, imm int32) uint32) Exec {
	return func(mc isa.MachineCode, st State) (bool, error) {
		a := st.GetReg(int(mc.GetField(isa.RS1)))
		imm := isa.SignExtend(mc.GetField(isa.IMM_11_0), 12)
		st.SetReg(int(mc.GetField(isa.RD)), f(a, imm))
		advancePC(st)
		return true, nil
	}
}

// iArithParse parses `op rd, rs1, imm`, range-checking imm into
// [-2048, 2047] per §4.6's I-type arithmetic parser.
func iArithParse(toks []string, base isa.MachineCode, r Resolver) (isa.MachineCode, error) {
	if len(toks) != 3 {
		return base, fmt.Errorf("expected rd, rs1, imm, got %v", toks)
	}
	rd, err := parseRegTok(toks[0])
	if err != nil {
		return base, err
	}
	rs1, err := parseRegTok(toks[1])
	if err != nil {
		return base, err
	}
	imm, _, err := GetImmediate(toks[2], -2048, 2047, r, nil)
	if err != nil {
		return base, err
	}
	mc := base.SetField(isa.RD, rd)
	mc = mc.SetField(isa.RS1, rs1)
	mc = mc.SetField(isa.IMM_11_0, uint32(imm)&0xFFF)
	return mc, nil
}

func iTypeArithInstructions() []*Instruction {
	type def struct {
		mnemonic string
		funct3   uint32
		f        func(a uint32, imm int32) uint32
	}
	defs := []def{
		{"addi", 0x0, func(a uint32, imm int32) uint32 { return uint32(int32(a) + imm) }},
		{"slti", 0x2, func(a uint32, imm int32) uint32 { return boolToU32(int32(a) < imm) }},
		{"sltiu", 0x3, func(a uint32, imm int32) uint32 { return boolToU32(a < uint32(imm)) }},
		{"xori", 0x4, func(a uint32, imm int32) uint32 { return a ^ uint32(imm) }},
		{"ori", 0x6, func(a uint32, imm int32) uint32 { return a | uint32(imm) }},
		{"andi", 0x7, func(a uint32, imm int32) uint32 { return a & uint32(imm) }},
	}

	insts := make([]*Instruction, 0, len(defs))
	for _, d := range defs {
		d := d
		insts = append(insts, &Instruction{
			Mnemonic: d.mnemonic,
			Format: isa.InstructionFormat{
				{isa.OPCODE, isa.OpOpImm},
				{isa.FUNCT3, d.funct3},
			},
			Parse: iArithParse,
			Exec:  iArithKernel(d.f),
		})
	}
	return insts
}

// iShiftKernel builds the Exec for slli/srli/srai (shift amount in
// SHAMT, not a general 12-bit immediate).
func iShiftKernel(f func(a uint32, shamt uint32) uint32) Exec {
	return func(mc isa.MachineCode, st State) (bool, error) {
		a := st.GetReg(int(mc.GetField(isa.RS1)))
		shamt := mc.GetField(isa.SHAMT)
		st.SetReg(int(mc.GetField(isa.RD)), f(a, shamt))
		advancePC(st)
		return true, nil
	}
}

func iShiftParse(toks []string, base isa.MachineCode, r Resolver) (isa.MachineCode, error) {
	if len(toks) != 3 {
		return base, fmt.Errorf("expected rd, rs1, shamt, got %v", toks)
	}
	rd, err := parseRegTok(toks[0])
	if err != nil {
		return base, err
	}
	rs1, err := parseRegTok(toks[1])
	if err != nil {
		return base, err
	}
	shamt, _, err := GetImmediate(toks[2], 0, 31, r, nil)
	if err != nil {
		return base, err
	}
	mc := base.SetField(isa.RD, rd)
	mc = mc.SetField(isa.RS1, rs1)
	mc = mc.SetField(isa.SHAMT, uint32(shamt))
	return mc, nil
}

func iTypeShiftInstructions() []*Instruction {
	type def struct {
		mnemonic string
		funct3   uint32
		funct7   uint32
		f        func(a, shamt uint32) uint32
	}
	defs := []def{
		{"slli", 0x1, 0x00, func(a, sh uint32) uint32 { return a << sh }},
		{"srli", 0x5, 0x00, func(a, sh uint32) uint32 { return a >> sh }},
		{"srai", 0x5, 0x20, func(a, sh uint32) uint32 { return uint32(int32(a) >> sh) }},
	}

	insts := make([]*Instruction, 0, len(defs))
	for _, d := range defs {
		d := d
		insts = append(insts, &Instruction{
			Mnemonic: d.mnemonic,
			Format: isa.InstructionFormat{
				{isa.OPCODE, isa.OpOpImm},
				{isa.FUNCT3, d.funct3},
				{isa.FUNCT7, d.funct7},
			},
			Parse: iShiftParse,
			Exec:  iShiftKernel(d.f),
		})
	}
	return insts
}
