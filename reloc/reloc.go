// Package reloc implements the pluggable patch functions the linker
// (package linker) applies to a MachineCode, or to raw data bytes, once a
// symbol's final address is known. Each relocator is a pure function of
// (code word, pc of that word, resolved target address).
package reloc

import (
	"fmt"

	"github.com/lookbusy1344/riscv-edu/isa"
)

// Func patches mc in place given the address of the instruction being
// patched (pc) and the resolved absolute address of the symbol it
// references (target). It returns the patched word or an error if target
// does not fit the relocation's representable range.
type Func func(mc isa.MachineCode, pc, target uint32) (isa.MachineCode, error)

// ImmAbsRelocator writes the low 12 bits of target into IMM_11_0, an
// absolute (not PC-relative) fixup. No expander or parser in package asm
// or instr registers it.
func ImmAbsRelocator(mc isa.MachineCode, _ uint32, target uint32) (isa.MachineCode, error) {
	return mc.SetField(isa.IMM_11_0, target&0xFFF), nil
}

// ImmAbsStoreRelocator requires the (signed) target fit in 12 bits and
// splits it across IMM_11_5/IMM_4_0, the S-type immediate encoding, with
// no paired AUIPC. No expander or parser in package asm or instr
// registers it: the store pseudo always emits an auipc+store pair.
func ImmAbsStoreRelocator(mc isa.MachineCode, _ uint32, target uint32) (isa.MachineCode, error) {
	signed := int32(target)
	if signed < -2048 || signed > 2047 {
		return mc, fmt.Errorf("store immediate %d out of range [-2048, 2047]", signed)
	}
	u := uint32(signed) & 0xFFF
	mc = mc.SetField(isa.IMM_4_0, u&0x1F)
	mc = mc.SetField(isa.IMM_11_5, u>>5)
	return mc, nil
}

// pcRelHiBits computes the AUIPC high-20 field, biased by 0x800 so that
// the subsequent sign-extension of the paired instruction's low-12 field
// is compensated: hi holds round((target-pc)/4096), lo holds the
// remainder as a signed 12-bit value.
func pcRelHiBits(pc, target uint32) uint32 {
	delta := target - pc
	return ((delta + 0x800) >> 12) & 0xFFFFF
}

// PCRelHiRelocator patches the AUIPC half of an auipc+(addi|load|store)
// pair with the high 20 bits of target-pc.
func PCRelHiRelocator(mc isa.MachineCode, pc, target uint32) (isa.MachineCode, error) {
	return mc.SetField(isa.IMM_31_12, pcRelHiBits(pc, target)), nil
}

// pcRelLoValue computes the low-12 signed remainder for the instruction
// paired with an AUIPC four bytes earlier at auipcPC = pc-4. It must use
// the exact same (target-auipcPC) delta the AUIPC relocator used so that
// auipc.hi<<12 + sign_extend(lo) == target.
func pcRelLoValue(pc, target uint32) uint32 {
	auipcPC := pc - 4
	delta := target - auipcPC
	return delta & 0xFFF
}

// PCRelLoRelocator patches an I-type (ADDI or load) paired with an AUIPC
// four bytes earlier, writing the low 12 bits of target minus that
// AUIPC's address (pc-4) into IMM_11_0.
func PCRelLoRelocator(mc isa.MachineCode, pc, target uint32) (isa.MachineCode, error) {
	return mc.SetField(isa.IMM_11_0, pcRelLoValue(pc, target)), nil
}

// PCRelLoStoreRelocator is PCRelLoRelocator for the S-type immediate
// split (used by the `sw rs, label, rt` store pseudo).
func PCRelLoStoreRelocator(mc isa.MachineCode, pc, target uint32) (isa.MachineCode, error) {
	u := pcRelLoValue(pc, target)
	mc = mc.SetField(isa.IMM_4_0, u&0x1F)
	mc = mc.SetField(isa.IMM_11_5, u>>5)
	return mc, nil
}

// JALRelocator encodes a PC-relative jump offset across the J-type split
// fields. Range is [-1 MiB, +1 MiB) since the encoded offset is a
// 21-bit signed value with an implicit zero low bit.
func JALRelocator(mc isa.MachineCode, pc, target uint32) (isa.MachineCode, error) {
	offset := int32(target - pc)
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

// BranchRelocator encodes a PC-relative branch offset across the B-type
// split fields. Range is [-4096, 4095], with an implicit zero low bit.
func BranchRelocator(mc isa.MachineCode, pc, target uint32) (isa.MachineCode, error) {
	offset := int32(target - pc)
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

// NoRelocator64 is a placeholder for the RV64 relocation variant; RV64 is
// reserved in the design but not implemented (spec Non-goals).
func NoRelocator64(mc isa.MachineCode, _, _ uint32) (isa.MachineCode, error) {
	return mc, fmt.Errorf("RV64 relocation is not implemented")
}

// PatchWord overwrites the 4 bytes at data[offset:offset+4] little-endian
// with target. Used for `.word label` data-segment relocations.
func PatchWord(data []byte, offset int, target uint32) error {
	if offset < 0 || offset+4 > len(data) {
		return fmt.Errorf("data relocation offset %d out of range (len=%d)", offset, len(data))
	}
	data[offset+0] = byte(target)
	data[offset+1] = byte(target >> 8)
	data[offset+2] = byte(target >> 16)
	data[offset+3] = byte(target >> 24)
	return nil
}
