package instr

import "github.com/lookbusy1344/riscv-edu/isa"

func ecallParse(toks []string, base isa.MachineCode, _ Resolver) (isa.MachineCode, error) {
	if len(toks) != 0 {
		return base, errTooManyOperands("ecall", toks)
	}
	return base, nil
}

func ecallExec(_ isa.MachineCode, st State) (bool, error) {
	halted, err := st.Ecall()
	if err != nil {
		return false, err
	}
	if halted {
		return false, nil
	}
	advancePC(st)
	return true, nil
}

func systemInstructions() []*Instruction {
	return []*Instruction{
		{
			Mnemonic: "ecall",
			Format: isa.InstructionFormat{
				{isa.OPCODE, isa.OpSystem},
				{isa.FUNCT3, 0x0},
				{isa.IMM_11_0, 0x0},
			},
			Parse: ecallParse,
			Exec:  ecallExec,
		},
	}
}
