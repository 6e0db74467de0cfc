package asm

import (
	"fmt"
	"strconv"

	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/lexer"
	"github.com/lookbusy1344/riscv-edu/reloc"
)

// expansion is one TAL line a pseudo-instruction expands to: a real
// mnemonic plus its operand tokens (parsed the same way as if the user
// had written it directly).
type expansion struct {
	Mnemonic string
	Operands []string
}

// pseudoExpander turns one pseudo-instruction's operand tokens into one
// or more TAL expansions. It receives the owning Program so it can
// inspect the current text offset and register relocations for
// expansions (like la/call) whose paired instructions need a
// PCRel-Hi/Lo fixup. Returning (nil, nil) means "not a pseudo after
// all" — used by the load/store dual-role entries when the operand
// turns out to be a plain numeral.
type pseudoExpander func(p *Program, toks []string) ([]expansion, error)

var pseudoTable map[string]pseudoExpander

func init() {
	pseudoTable = map[string]pseudoExpander{
		"li":   expandLi,
		"mv":   aliasRTokOne("addi", func(rd, rs string) []string { return []string{rd, rs, "0"} }),
		"not":  aliasRTokOne("xori", func(rd, rs string) []string { return []string{rd, rs, "-1"} }),
		"neg":  aliasRTokOne("sub", func(rd, rs string) []string { return []string{rd, "x0", rs} }),
		"seqz": aliasRTokOne("sltiu", func(rd, rs string) []string { return []string{rd, rs, "1"} }),
		"snez": aliasRTokOne("sltu", func(rd, rs string) []string { return []string{rd, "x0", rs} }),
		"sltz": aliasRTokOne("slt", func(rd, rs string) []string { return []string{rd, rs, "x0"} }),
		"sgtz": aliasRTokOne("slt", func(rd, rs string) []string { return []string{rd, "x0", rs} }),

		"beqz": aliasBranch("beq", func(rs, label string) []string { return []string{rs, "x0", label} }),
		"bnez": aliasBranch("bne", func(rs, label string) []string { return []string{rs, "x0", label} }),
		"blez": aliasBranch("bge", func(rs, label string) []string { return []string{"x0", rs, label} }),
		"bgez": aliasBranch("bge", func(rs, label string) []string { return []string{rs, "x0", label} }),
		"bltz": aliasBranch("blt", func(rs, label string) []string { return []string{rs, "x0", label} }),
		"bgtz": aliasBranch("blt", func(rs, label string) []string { return []string{"x0", rs, label} }),
		"ble":  aliasBranch2("bge"),
		"bgt":  aliasBranch2("blt"),
		"bleu": aliasBranch2("bgeu"),
		"bgtu": aliasBranch2("bltu"),

		"j":    expandJ,
		"jr":   expandJr,
		"ret":  expandRet,
		"call": expandCall,
		"la":   expandLa,

		"lb":  loadOrStorePseudo("lb", true),
		"lh":  loadOrStorePseudo("lh", true),
		"lw":  loadOrStorePseudo("lw", true),
		"lbu": loadOrStorePseudo("lbu", true),
		"lhu": loadOrStorePseudo("lhu", true),
		"sb":  loadOrStorePseudo("sb", false),
		"sh":  loadOrStorePseudo("sh", false),
		"sw":  loadOrStorePseudo("sw", false),
	}
}

// expandPseudo looks mnemonic up in the dispatch table and, if present,
// expands it. matched=false means mnemonic is not a pseudo at all (pass
// one should emit toks unchanged as ordinary TAL); for the load/store
// mnemonics that double as real instructions, the expander itself
// returns a nil expansion list when no expansion is needed (a numeric
// operand), which also yields matched=false.
func expandPseudo(p *Program, mnemonic string, toks []string) (expanded []expansion, matched bool, err error) {
	fn, found := pseudoTable[mnemonic]
	if !found {
		return nil, false, nil
	}
	expanded, err = fn(p, toks)
	if err != nil {
		return nil, false, err
	}
	if expanded == nil {
		return nil, false, nil
	}
	return expanded, true, nil
}

func aliasRTokOne(target string, build func(rd, rs string) []string) pseudoExpander {
	return func(_ *Program, toks []string) ([]expansion, error) {
		if len(toks) != 2 {
			return nil, fmt.Errorf("expected rd, rs, got %v", toks)
		}
		return []expansion{{Mnemonic: target, Operands: build(toks[0], toks[1])}}, nil
	}
}

func aliasBranch(target string, build func(rs, label string) []string) pseudoExpander {
	return func(_ *Program, toks []string) ([]expansion, error) {
		if len(toks) != 2 {
			return nil, fmt.Errorf("expected rs, label, got %v", toks)
		}
		return []expansion{{Mnemonic: target, Operands: build(toks[0], toks[1])}}, nil
	}
}

// aliasBranch2 swaps a two-register branch pseudo's operands onto the
// canonical comparison (ble rs,rt,label -> bge rt,rs,label, etc.).
func aliasBranch2(target string) pseudoExpander {
	return func(_ *Program, toks []string) ([]expansion, error) {
		if len(toks) != 3 {
			return nil, fmt.Errorf("expected rs, rt, label, got %v", toks)
		}
		return []expansion{{Mnemonic: target, Operands: []string{toks[1], toks[0], toks[2]}}}, nil
	}
}

func expandJ(_ *Program, toks []string) ([]expansion, error) {
	if len(toks) != 1 {
		return nil, fmt.Errorf("expected label, got %v", toks)
	}
	return []expansion{{Mnemonic: "jal", Operands: []string{"x0", toks[0]}}}, nil
}

func expandJr(_ *Program, toks []string) ([]expansion, error) {
	if len(toks) != 1 {
		return nil, fmt.Errorf("expected rs, got %v", toks)
	}
	return []expansion{{Mnemonic: "jalr", Operands: []string{"x0", "0", toks[0]}}}, nil
}

func expandRet(_ *Program, toks []string) ([]expansion, error) {
	if len(toks) != 0 {
		return nil, fmt.Errorf("ret takes no operands, got %v", toks)
	}
	return []expansion{{Mnemonic: "jalr", Operands: []string{"x0", "0", "x1"}}}, nil
}

// expandCall turns `call label` into auipc x1,hi + jalr x1,lo(x1), a
// paired PCRel-Hi/Lo relocation registered directly against the planned
// offsets of the two TAL lines this expansion is about to emit.
func expandCall(p *Program, toks []string) ([]expansion, error) {
	if len(toks) != 1 {
		return nil, fmt.Errorf("expected label, got %v", toks)
	}
	sym, offTok, sign := symbolPartForPseudo(toks[0])
	offset, err := resolveOffsetForPseudo(offTok, sign, p)
	if err != nil {
		return nil, err
	}
	base := p.TextSize
	p.addTextRelocationAt(base, sym, offset, reloc.PCRelHiRelocator)
	p.addTextRelocationAt(base+isa.InstructionLength, sym, offset, reloc.PCRelLoRelocator)
	return []expansion{
		{Mnemonic: "auipc", Operands: []string{"x1", "0"}},
		{Mnemonic: "jalr", Operands: []string{"x1", "0", "x1"}},
	}, nil
}

// expandLa turns `la rd, label` into auipc rd,hi + addi rd,rd,lo.
func expandLa(p *Program, toks []string) ([]expansion, error) {
	if len(toks) != 2 {
		return nil, fmt.Errorf("expected rd, label, got %v", toks)
	}
	rd := toks[0]
	sym, offTok, sign := symbolPartForPseudo(toks[1])
	offset, err := resolveOffsetForPseudo(offTok, sign, p)
	if err != nil {
		return nil, err
	}
	base := p.TextSize
	p.addTextRelocationAt(base, sym, offset, reloc.PCRelHiRelocator)
	p.addTextRelocationAt(base+isa.InstructionLength, sym, offset, reloc.PCRelLoRelocator)
	return []expansion{
		{Mnemonic: "auipc", Operands: []string{rd, "0"}},
		{Mnemonic: "addi", Operands: []string{rd, rd, "0"}},
	}, nil
}

// expandLi expands `li rd, imm` to a single addi when imm fits a signed
// 12-bit field, else to lui+addi with the classic +0x800 bias so the
// paired addi's sign-extension reconstructs the exact original value
// (§9 open question 3: tested at the 0x7FFFF800/-0x80000000 boundary).
func expandLi(p *Program, toks []string) ([]expansion, error) {
	if len(toks) != 2 {
		return nil, fmt.Errorf("expected rd, imm, got %v", toks)
	}
	rd := toks[0]
	v, err := resolveConstant(toks[1], p)
	if err != nil {
		return nil, err
	}
	if v >= -2048 && v <= 2047 {
		return []expansion{{Mnemonic: "addi", Operands: []string{rd, "x0", strconv.FormatInt(v, 10)}}}, nil
	}
	hi := (v + 0x800) >> 12
	lo := v - (hi << 12)
	hi20 := uint32(hi) & 0xFFFFF
	return []expansion{
		{Mnemonic: "lui", Operands: []string{rd, strconv.FormatUint(uint64(hi20), 10)}},
		{Mnemonic: "addi", Operands: []string{rd, rd, strconv.FormatInt(lo, 10)}},
	}, nil
}

// resolveConstant resolves a li operand to a plain integer: a numeral
// directly, or a same-unit .equiv/label chased to its value. li only
// loads constants, never link-time addresses, so this never registers a
// relocation; an unresolvable name is a hard error.
func resolveConstant(tok string, p *Program) (int64, error) {
	if n, ok, err := lexer.UserStringToInt(tok); ok {
		if err != nil {
			return 0, err
		}
		return int64(n), nil
	}
	seen := map[string]bool{}
	name := tok
	for {
		if seen[name] {
			return 0, fmt.Errorf("circularity in definition of %s", tok)
		}
		seen[name] = true
		if rhs, ok := p.equivs[name]; ok {
			if n, ok, err := lexer.UserStringToInt(rhs); ok {
				if err != nil {
					return 0, err
				}
				return int64(n), nil
			}
			name = rhs
			continue
		}
		if v, ok := p.labels[name]; ok {
			return int64(v), nil
		}
		return 0, fmt.Errorf("li: %q is not a resolvable constant at this point in assembly", tok)
	}
}

// loadOrStorePseudo handles the lb/lh/lw/lbu/lhu/sb/sh/sw dual role: a
// numeric offset operand is an ordinary instruction (fall through
// unexpanded); a label operand expands to an auipc+load/store PCRel
// pair.
func loadOrStorePseudo(mnemonic string, isLoad bool) pseudoExpander {
	return func(p *Program, toks []string) ([]expansion, error) {
		if len(toks) != 3 {
			return nil, nil // malformed; let the real parser report the error
		}
		valueReg, offsetTok, baseReg := toks[0], toks[1], toks[2]
		if _, ok, _ := lexer.UserStringToInt(offsetTok); ok {
			return nil, nil // numeric: not a pseudo, pass through unchanged
		}

		sym, offTok, sign := symbolPartForPseudo(offsetTok)
		offset, err := resolveOffsetForPseudo(offTok, sign, p)
		if err != nil {
			return nil, err
		}
		base := p.TextSize
		p.addTextRelocationAt(base, sym, offset, reloc.PCRelHiRelocator)
		loFn := reloc.PCRelLoRelocator
		if !isLoad {
			loFn = reloc.PCRelLoStoreRelocator
		}
		p.addTextRelocationAt(base+isa.InstructionLength, sym, offset, loFn)

		return []expansion{
			{Mnemonic: "auipc", Operands: []string{baseReg, "0"}},
			{Mnemonic: mnemonic, Operands: []string{valueReg, "0", baseReg}},
		}, nil
	}
}

// symbolPartForPseudo mirrors instr's unexported symbolPart helper;
// duplicated here since asm cannot reach into instr's internals.
func symbolPartForPseudo(s string) (sym string, offsetTok string, sign int) {
	for i := 1; i < len(s); i++ {
		if s[i] == '+' {
			return s[:i], s[i+1:], 1
		}
		if s[i] == '-' {
			return s[:i], s[i+1:], -1
		}
	}
	return s, "", 0
}

func resolveOffsetForPseudo(offsetTok string, sign int, p *Program) (int32, error) {
	if offsetTok == "" {
		return 0, nil
	}
	if n, ok, err := lexer.UserStringToInt(offsetTok); ok {
		if err != nil {
			return 0, err
		}
		return int32(sign) * n, nil
	}
	if v, ok := p.labels[offsetTok]; ok {
		return int32(sign) * v, nil
	}
	return 0, fmt.Errorf("undefined symbol %q used as offset", offsetTok)
}
