package isa

// FieldEqual is a single "this field must hold this value" constraint.
// An InstructionFormat is the ordered conjunction of such constraints;
// it is both how an encoder seeds a fresh MachineCode (Fill) and how a
// decoder recognizes one (Matches).
type FieldEqual struct {
	Field Field
	Value uint32
}

// InstructionFormat names the fixed-bit constraints that identify one
// RV32IM opcode (e.g. ADD is OPCODE=0x33, FUNCT3=0x0, FUNCT7=0x00; ADDI
// shares OPCODE=0x13, FUNCT3=0x0 but no FUNCT7 constraint since I-type
// has no funct7 field).
type InstructionFormat []FieldEqual

// Fill returns a zero MachineCode with every constraint's field set to
// its required value. This is the starting point every instruction
// parser mutates with its operand-derived fields (rd, rs1, immediates).
func (f InstructionFormat) Fill() MachineCode {
	var m MachineCode
	for _, c := range f {
		m = m.SetField(c.Field, c.Value)
	}
	return m
}

// Matches reports whether every constraint in f holds on m. Decoding an
// instruction word is a linear scan over the table for the unique format
// that matches.
func (f InstructionFormat) Matches(m MachineCode) bool {
	for _, c := range f {
		if m.GetField(c.Field) != c.Value {
			return false
		}
	}
	return true
}

// Opcode values for the base RV32I/RV32M formats in the implemented
// subset (funct3/funct7 distinguish individual mnemonics within a format;
// see instr.Table).
const (
	OpLoad    = 0x03
	OpMiscMem = 0x0F // FENCE; no instruction in instr.Table uses it
	OpOpImm   = 0x13
	OpAuipc   = 0x17
	OpStore   = 0x23
	OpOp      = 0x33
	OpLui     = 0x37
	OpBranch  = 0x63
	OpJalr    = 0x67
	OpJal     = 0x6F
	OpSystem  = 0x73
)
