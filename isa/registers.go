package isa

import (
	"fmt"
	"strconv"
	"strings"
)

// NumRegisters is the size of the RV32 general-purpose register file.
const NumRegisters = 32

// abiNames maps the ABI register mnemonics (§6.3) to their x-register
// index. t3-t6/s2-s11 follow the standard RISC-V calling convention.
var abiNames = map[string]int{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23, "s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// ParseRegister accepts either an ABI name (ra, sp, a0, t3, ...) or an
// x-register form (x0..x31) and returns the register index.
func ParseRegister(tok string) (int, error) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	if idx, ok := abiNames[tok]; ok {
		return idx, nil
	}
	if strings.HasPrefix(tok, "x") {
		n, err := strconv.Atoi(tok[1:])
		if err == nil && n >= 0 && n < NumRegisters {
			return n, nil
		}
	}
	return 0, fmt.Errorf("not a register: %q", tok)
}

// IsRegister reports whether tok names a register, without erroring.
func IsRegister(tok string) bool {
	_, err := ParseRegister(tok)
	return err == nil
}
