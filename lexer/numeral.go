package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberFormatError reports a numeral token that looked numeric (started
// with a digit, sign, or character-literal quote) but failed to parse —
// overflowed 64 bits, or contained a digit invalid for its radix.
type NumberFormatError struct {
	Token string
	Cause string
}

func (e *NumberFormatError) Error() string {
	return fmt.Sprintf("malformed numeral %q: %s", e.Token, e.Cause)
}

// looksNumeric reports whether s should be attempted as a numeral at
// all, as opposed to a label reference. A leading digit, sign, or
// single-quote commits the token to numeral parsing; anything else
// (starting with a letter, underscore, or dot) is a symbol.
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if c == '\'' {
		return true
	}
	if c == '+' || c == '-' {
		return len(s) > 1 && isDigitByte(s[1])
	}
	return isDigitByte(c)
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}

func validDigitForRadix(c byte, radix int) bool {
	switch radix {
	case 2:
		return c == '0' || c == '1'
	case 16:
		return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	default:
		return c >= '0' && c <= '9'
	}
}

// UserStringToInt implements §4.2's userStringToInt: a character literal
// decodes to its Unicode code point; otherwise an optional sign, an
// optional 0x/0b radix prefix, then digits, parsed as signed 64-bit and
// truncated to 32 bits. ok reports whether s was recognized as a numeral
// at all (false means the caller should try symbol resolution instead);
// when ok is true, err is non-nil only for malformed/overflowing input.
func UserStringToInt(s string) (value int32, ok bool, err error) {
	if !looksNumeric(s) {
		return 0, false, nil
	}

	if s[0] == '\'' {
		return parseCharLiteral(s)
	}

	neg := false
	rest := s
	if rest[0] == '+' || rest[0] == '-' {
		neg = rest[0] == '-'
		rest = rest[1:]
	}

	radix := 10
	switch {
	case strings.HasPrefix(rest, "0x") || strings.HasPrefix(rest, "0X"):
		radix = 16
		rest = rest[2:]
	case strings.HasPrefix(rest, "0b") || strings.HasPrefix(rest, "0B"):
		radix = 2
		rest = rest[2:]
	}

	if rest == "" {
		return 0, true, &NumberFormatError{Token: s, Cause: "no digits"}
	}
	for i := 0; i < len(rest); i++ {
		if !validDigitForRadix(rest[i], radix) {
			return 0, true, &NumberFormatError{Token: s, Cause: fmt.Sprintf("invalid digit %q for base %d", rest[i], radix)}
		}
	}

	n, perr := strconv.ParseInt(rest, radix, 64)
	if perr != nil {
		return 0, true, &NumberFormatError{Token: s, Cause: perr.Error()}
	}
	if neg {
		n = -n
	}
	return int32(uint32(n)), true, nil
}

func parseCharLiteral(s string) (int32, bool, error) {
	if len(s) < 3 || s[len(s)-1] != '\'' {
		return 0, true, &NumberFormatError{Token: s, Cause: "unterminated character literal"}
	}
	inner := s[1 : len(s)-1]
	if strings.HasPrefix(inner, "\\") {
		b, consumed, err := parseEscapeChar(inner)
		if err != nil {
			return 0, true, &NumberFormatError{Token: s, Cause: err.Error()}
		}
		if consumed != len(inner) {
			return 0, true, &NumberFormatError{Token: s, Cause: "invalid character literal"}
		}
		return int32(b), true, nil
	}
	if len(inner) != 1 {
		return 0, true, &NumberFormatError{Token: s, Cause: "character literal must contain exactly one character"}
	}
	return int32(inner[0]), true, nil
}
