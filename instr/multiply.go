package instr

import "github.com/lookbusy1344/riscv-edu/isa"

// mulDivKernel mirrors rKernel but for the RV32M extension, where every
// instruction shares the R-type `op rd, rs1, rs2` parser.
func mulDivKernel(f func(a, b uint32) uint32) Exec {
	return rKernel(f)
}

func mulhu64(a, b uint32) uint64 {
	return (uint64(a) * uint64(b)) >> 32
}

func multiplyDivideInstructions() []*Instruction {
	type def struct {
		mnemonic string
		funct3   uint32
		f        func(a, b uint32) uint32
	}
	defs := []def{
		{"mul", 0x0, func(a, b uint32) uint32 {
			return uint32(int64(int32(a)) * int64(int32(b)))
		}},
		{"mulh", 0x1, func(a, b uint32) uint32 {
			product := int64(int32(a)) * int64(int32(b))
			return uint32(uint64(product) >> 32)
		}},
		{"mulhsu", 0x2, func(a, b uint32) uint32 {
			product := int64(int32(a)) * int64(uint64(b))
			return uint32(uint64(product) >> 32)
		}},
		{"mulhu", 0x3, func(a, b uint32) uint32 {
			return uint32(mulhu64(a, b))
		}},
		{"div", 0x4, func(a, b uint32) uint32 {
			sa, sb := int32(a), int32(b)
			if sb == 0 {
				return 0xFFFFFFFF
			}
			if sa == -2147483648 && sb == -1 {
				return uint32(sa) // INT_MIN / -1 overflow: quotient = INT_MIN
			}
			return uint32(sa / sb)
		}},
		{"divu", 0x5, func(a, b uint32) uint32 {
			if b == 0 {
				return 0xFFFFFFFF
			}
			return a / b
		}},
		{"rem", 0x6, func(a, b uint32) uint32 {
			sa, sb := int32(a), int32(b)
			if sb == 0 {
				return a // remainder = dividend
			}
			if sa == -2147483648 && sb == -1 {
				return 0
			}
			return uint32(sa % sb)
		}},
		{"remu", 0x7, func(a, b uint32) uint32 {
			if b == 0 {
				return a
			}
			return a % b
		}},
	}

	insts := make([]*Instruction, 0, len(defs))
	for _, d := range defs {
		d := d
		insts = append(insts, &Instruction{
			Mnemonic: d.mnemonic,
			Format: isa.InstructionFormat{
				{isa.OPCODE, isa.OpOp},
				{isa.FUNCT3, d.funct3},
				{isa.FUNCT7, 0x01},
			},
			Parse: rParse,
			Exec:  mulDivKernel(d.f),
		})
	}
	return insts
}
