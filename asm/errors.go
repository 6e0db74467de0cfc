package asm

import (
	"fmt"
	"strings"
)

// Kind categorizes an assembler error (§7).
type Kind int

const (
	LexError Kind = iota
	ParseError
	RangeError
	LabelError
	DirectiveError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case ParseError:
		return "parse error"
	case RangeError:
		return "range error"
	case LabelError:
		return "label error"
	case DirectiveError:
		return "directive error"
	default:
		return "error"
	}
}

// Error is one accumulated assembler diagnostic, carrying enough context
// (originating line number and source text) for a host to report it the
// way the teacher's parser.Error does.
type Error struct {
	Line    int
	Source  string
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Message))
	if e.Source != "" {
		sb.WriteString(fmt.Sprintf("\n    %s", e.Source))
	}
	return sb.String()
}

// Warning is a non-fatal diagnostic (e.g. a `.float`/`.double` directive).
type Warning struct {
	Line    int
	Message string
}

func (w *Warning) String() string {
	return fmt.Sprintf("line %d: warning: %s", w.Line, w.Message)
}

// ErrorList accumulates every error pass one encounters so a user sees as
// many as possible in one run (§4.3 step 7), rather than stopping at the
// first.
type ErrorList struct {
	Errors   []*Error
	Warnings []*Warning
}

func (el *ErrorList) addError(line int, source string, kind Kind, format string, args ...any) {
	el.Errors = append(el.Errors, &Error{
		Line:    line,
		Source:  source,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

func (el *ErrorList) addWarning(line int, format string, args ...any) {
	el.Warnings = append(el.Warnings, &Warning{Line: line, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any error (not warning) was recorded.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

func (el *ErrorList) Error() string {
	var sb strings.Builder
	for _, e := range el.Errors {
		sb.WriteString(e.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}
