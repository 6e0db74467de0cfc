package asm

import (
	"strings"

	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/lexer"
)

// PassOne runs §4.3 over sourceLines, populating p's labels, equivs,
// rodata/data segments and relocations, and the TAL list pass two will
// consume. Errors are accumulated in p.Errors rather than stopping at
// the first one, so a user sees as many diagnostics as possible; the
// caller must check p.Errors.HasErrors() before running PassTwo.
func PassOne(p *Program, sourceLines []string) {
	for i, raw := range sourceLines {
		lineNo := i + 1

		lexed, err := lexer.Lex(raw)
		if err != nil {
			p.Errors.addError(lineNo, raw, LexError, "%s", err.Error())
			continue
		}

		for _, label := range lexed.Labels {
			if err := p.AddLabel(label, lineNo, raw); err != nil {
				if ae, ok := err.(*Error); ok {
					p.Errors.Errors = append(p.Errors.Errors, ae)
				}
			}
		}

		if len(lexed.Tokens) == 0 {
			continue
		}

		first := lexed.Tokens[0]
		if strings.HasPrefix(first, ".") {
			if derr := handleDirective(p, first, lexed.Tokens[1:], lineNo, raw); derr != nil {
				p.Errors.Errors = append(p.Errors.Errors, derr)
			}
			continue
		}

		mnemonic := strings.ToLower(first)
		operands := lexed.Tokens[1:]

		expanded, matched, err := expandPseudo(p, mnemonic, operands)
		if err != nil {
			p.Errors.addError(lineNo, raw, ParseError, "%s", err.Error())
			continue
		}

		if !matched {
			if emitErr := emitTAL(p, mnemonic, operands, lineNo, raw); emitErr != nil {
				p.Errors.Errors = append(p.Errors.Errors, emitErr)
			}
			continue
		}

		for _, e := range expanded {
			if emitErr := emitTAL(p, e.Mnemonic, e.Operands, lineNo, raw); emitErr != nil {
				p.Errors.Errors = append(p.Errors.Errors, emitErr)
			}
		}
	}
}

func emitTAL(p *Program, mnemonic string, operands []string, line int, source string) *Error {
	if p.Segment() != isa.SegText {
		return &Error{Line: line, Source: source, Kind: DirectiveError, Message: "instructions cannot be emitted outside .text"}
	}
	p.appendTAL(mnemonic, operands, line, source)
	return nil
}
