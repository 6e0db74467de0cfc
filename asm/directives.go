package asm

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/lexer"
)

// handleDirective processes one `.`-prefixed directive line (§6.2).
func handleDirective(p *Program, name string, args []string, line int, source string) *Error {
	switch strings.ToLower(name) {
	case ".text":
		p.SetSegment(isa.SegText)
		return nil
	case ".data":
		p.SetSegment(isa.SegData)
		return nil
	case ".rodata":
		p.SetSegment(isa.SegRodata)
		return nil

	case ".byte":
		return directiveByte(p, args, line, source)
	case ".word":
		return directiveWord(p, args, line, source)
	case ".string", ".asciiz":
		return directiveString(p, args, line, source)
	case ".space":
		return directiveSpace(p, args, line, source)
	case ".align":
		return directiveAlign(p, args, line, source)
	case ".globl":
		for _, a := range args {
			p.Globl(a)
		}
		return nil
	case ".equiv":
		return directiveEquiv(p, args, true, line, source)
	case ".equ", ".set":
		return directiveEquiv(p, args, false, line, source)
	case ".float", ".double":
		p.Errors.addWarning(line, "%s directive accepted but ignored (floating point is not implemented)", name)
		return nil
	default:
		return &Error{Line: line, Source: source, Kind: DirectiveError, Message: fmt.Sprintf("unknown directive %s", name)}
	}
}

func requireDataSegment(p *Program, directive string, line int, source string) *Error {
	if p.Segment() == isa.SegText {
		return &Error{Line: line, Source: source, Kind: DirectiveError, Message: fmt.Sprintf("%s is only valid in .data or .rodata", directive)}
	}
	return nil
}

func directiveByte(p *Program, args []string, line int, source string) *Error {
	if err := requireDataSegment(p, ".byte", line, source); err != nil {
		return err
	}
	for _, a := range args {
		v, ok, nerr := lexer.UserStringToInt(a)
		if !ok || nerr != nil {
			return &Error{Line: line, Source: source, Kind: ParseError, Message: fmt.Sprintf(".byte operand %q is not a numeral", a)}
		}
		// Open question: the asymmetric [-127,255] bound (not the
		// conventional [-128,255]) is preserved literally.
		if v < -127 || v > 255 {
			return &Error{Line: line, Source: source, Kind: RangeError, Message: fmt.Sprintf(".byte value %d out of range [-127, 255]", v)}
		}
		p.EmitBytes([]byte{byte(v)})
	}
	return nil
}

func directiveWord(p *Program, args []string, line int, source string) *Error {
	if err := requireDataSegment(p, ".word", line, source); err != nil {
		return err
	}
	for _, a := range args {
		if v, ok, nerr := lexer.UserStringToInt(a); ok {
			if nerr != nil {
				return &Error{Line: line, Source: source, Kind: ParseError, Message: nerr.Error()}
			}
			p.EmitWord(uint32(v))
			continue
		}
		sym, offTok, sign := symbolPartForPseudo(a)
		offset, err := resolveOffsetForPseudo(offTok, sign, p)
		if err != nil {
			return &Error{Line: line, Source: source, Kind: LabelError, Message: err.Error()}
		}
		if werr := p.EmitWordLabel(sym, offset, line, source); werr != nil {
			if ae, ok := werr.(*Error); ok {
				return ae
			}
			return &Error{Line: line, Source: source, Kind: DirectiveError, Message: werr.Error()}
		}
	}
	return nil
}

func directiveString(p *Program, args []string, line int, source string) *Error {
	if err := requireDataSegment(p, ".string", line, source); err != nil {
		return err
	}
	if len(args) != 1 {
		return &Error{Line: line, Source: source, Kind: ParseError, Message: ".string/.asciiz takes exactly one string literal"}
	}
	decoded, err := lexer.DecodeStringLiteral(args[0])
	if err != nil {
		return &Error{Line: line, Source: source, Kind: ParseError, Message: err.Error()}
	}
	for i := 0; i < len(decoded); i++ {
		if decoded[i] > 127 {
			return &Error{Line: line, Source: source, Kind: RangeError, Message: ".string/.asciiz only accepts ASCII (0..127) bytes"}
		}
	}
	p.EmitBytes(append([]byte(decoded), 0))
	return nil
}

func directiveSpace(p *Program, args []string, line int, source string) *Error {
	if err := requireDataSegment(p, ".space", line, source); err != nil {
		return err
	}
	if len(args) != 1 {
		return &Error{Line: line, Source: source, Kind: ParseError, Message: ".space takes exactly one operand"}
	}
	n, ok, nerr := lexer.UserStringToInt(args[0])
	if !ok || nerr != nil || n < 0 {
		return &Error{Line: line, Source: source, Kind: ParseError, Message: fmt.Sprintf(".space operand %q is not a non-negative numeral", args[0])}
	}
	p.EmitBytes(make([]byte, n))
	return nil
}

func directiveAlign(p *Program, args []string, line int, source string) *Error {
	if err := requireDataSegment(p, ".align", line, source); err != nil {
		return err
	}
	if len(args) != 1 {
		return &Error{Line: line, Source: source, Kind: ParseError, Message: ".align takes exactly one operand"}
	}
	k, ok, nerr := lexer.UserStringToInt(args[0])
	if !ok || nerr != nil || k < 0 || k > 8 {
		return &Error{Line: line, Source: source, Kind: RangeError, Message: ".align operand must be in [0, 8]"}
	}
	p.Align(uint(k))
	return nil
}

func directiveEquiv(p *Program, args []string, locked bool, line int, source string) *Error {
	if len(args) < 2 {
		return &Error{Line: line, Source: source, Kind: ParseError, Message: ".equiv/.equ/.set requires a name and an expression"}
	}
	name := args[0]
	rhs := strings.Join(args[1:], " ")
	if err := p.AddEquiv(name, rhs, locked, line, source); err != nil {
		if ae, ok := err.(*Error); ok {
			return ae
		}
		return &Error{Line: line, Source: source, Kind: LabelError, Message: err.Error()}
	}
	return nil
}
