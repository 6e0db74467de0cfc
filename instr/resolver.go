package instr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/riscv-edu/lexer"
	"github.com/lookbusy1344/riscv-edu/reloc"
)

// Resolver is everything an instruction parser needs from the assembler's
// in-progress Program (package asm) in order to turn a label operand into
// an immediate: the unit-local label table, and the ability to register a
// deferred relocation when a symbol isn't yet (or never will be, if it's
// external) resolvable locally. Defined here, implemented by asm.Program,
// so instr never imports asm.
type Resolver interface {
	// Lookup returns the value of a previously-defined local label or
	// resolved .equiv, and whether it was found.
	Lookup(name string) (int32, bool)
	// CurrentTextOffset is the byte offset the instruction being parsed
	// will occupy once pass two finishes.
	CurrentTextOffset() uint32
	// AddTextRelocation records a deferred fixup: once name resolves to
	// an absolute address (possibly in another linked unit), fn patches
	// the instruction at CurrentTextOffset using that address plus
	// symOffset.
	AddTextRelocation(name string, symOffset int32, fn reloc.Func)
}

// symbolPart splits a label operand of the form sym, sym+N, sym-N,
// sym+absSym or sym-absSym into its symbol and signed-offset parts per
// §4.2. A hand-written scan for the first top-level +/- is used instead
// of a regex, per the design notes.
func symbolPart(s string) (sym string, offsetTok string, sign int) {
	for i := 1; i < len(s); i++ { // start at 1: a leading +/- is part of sym itself only if sym is empty, which never happens for a valid label
		if s[i] == '+' {
			return s[:i], s[i+1:], 1
		}
		if s[i] == '-' {
			return s[:i], s[i+1:], -1
		}
	}
	return s, "", 0
}

// resolveSymbolOffset resolves the offset-part token of a label
// expression: either a decimal literal or another (already-resolved)
// symbol/equiv name.
func resolveSymbolOffset(offsetTok string, sign int, r Resolver) (int32, error) {
	if offsetTok == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(offsetTok, 10, 64); err == nil {
		return int32(sign) * int32(n), nil
	}
	if v, ok := r.Lookup(offsetTok); ok {
		return int32(sign) * v, nil
	}
	return 0, fmt.Errorf("undefined symbol %q used as offset", offsetTok)
}

// GetImmediate resolves str (either a bare numeral or a label[+-offset]
// expression) to a signed value and range-checks it against [min, max].
// If str names a symbol this unit cannot resolve yet, a relocation is
// registered via onUnresolved instead of failing (§4.6: "unresolved
// local symbols request a relocation instead of failing"); the returned
// value is then a placeholder 0 and resolved=false.
func GetImmediate(str string, min, max int64, r Resolver, onUnresolved reloc.Func) (value int32, resolved bool, err error) {
	str = strings.TrimSpace(str)
	if n, ok, nerr := lexer.UserStringToInt(str); ok {
		if nerr != nil {
			return 0, false, nerr
		}
		if int64(n) < min || int64(n) > max {
			return 0, false, fmt.Errorf("immediate %d out of range [%d, %d]", n, min, max)
		}
		return n, true, nil
	}

	sym, offTok, sign := symbolPart(str)
	offset, err := resolveSymbolOffset(offTok, sign, r)
	if err != nil {
		return 0, false, err
	}

	if base, ok := r.Lookup(sym); ok {
		v := base + offset
		if int64(v) < min || int64(v) > max {
			return 0, false, fmt.Errorf("resolved immediate %d out of range [%d, %d]", v, min, max)
		}
		return v, true, nil
	}

	if onUnresolved == nil {
		return 0, false, fmt.Errorf("undefined symbol %q", sym)
	}
	r.AddTextRelocation(sym, offset, onUnresolved)
	return 0, false, nil
}
