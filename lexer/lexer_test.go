package lexer

import "testing"

func TestLexBasicInstruction(t *testing.T) {
	line, err := Lex("addi x1, x0, 5")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	want := []string{"addi", "x1", "x0", "5"}
	if len(line.Tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", line.Tokens, want)
	}
	for i := range want {
		if line.Tokens[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, line.Tokens[i], want[i])
		}
	}
	if len(line.Labels) != 0 {
		t.Errorf("labels = %v, want none", line.Labels)
	}
}

func TestLexBaseRegisterSyntax(t *testing.T) {
	line, err := Lex("lw x2, -40(x1)")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	want := []string{"lw", "x2", "-40", "x1"}
	for i, tok := range want {
		if line.Tokens[i] != tok {
			t.Errorf("token %d = %q, want %q", i, line.Tokens[i], tok)
		}
	}
}

func TestLexLabelImmediatelyFollowedByColon(t *testing.T) {
	line, err := Lex("loop:addi x1, x1, 1")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if len(line.Labels) != 1 || line.Labels[0] != "loop" {
		t.Fatalf("labels = %v, want [loop]", line.Labels)
	}
	want := []string{"addi", "x1", "x1", "1"}
	if len(line.Tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", line.Tokens, want)
	}
}

// TestLexLabelWithTrailingWhitespace is §4.1's "an identifier immediately
// followed by optional whitespace and `:`" — the whitespace before the
// colon must not prevent the identifier from being recognized as a label.
func TestLexLabelWithTrailingWhitespace(t *testing.T) {
	line, err := Lex("loop : addi x1, x1, 1")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if len(line.Labels) != 1 || line.Labels[0] != "loop" {
		t.Fatalf("labels = %v, want [loop]", line.Labels)
	}
	want := []string{"addi", "x1", "x1", "1"}
	if len(line.Tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", line.Tokens, want)
	}
	for i, tok := range want {
		if line.Tokens[i] != tok {
			t.Errorf("token %d = %q, want %q", i, line.Tokens[i], tok)
		}
	}
}

func TestLexLabelAloneOnLineWithTrailingWhitespace(t *testing.T) {
	line, err := Lex("done  :")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if len(line.Labels) != 1 || line.Labels[0] != "done" {
		t.Fatalf("labels = %v, want [done]", line.Labels)
	}
	if len(line.Tokens) != 0 {
		t.Errorf("tokens = %v, want none", line.Tokens)
	}
}

func TestLexLabelInMiddleOfInstructionIsError(t *testing.T) {
	if _, err := Lex("addi x1, x0, 5 loop:"); err == nil {
		t.Fatal("expected error for label after an instruction token")
	}
	if _, err := Lex("addi loop: x0, 5"); err == nil {
		t.Fatal("expected error for label between instruction tokens")
	}
}

func TestLexColonWithNoLabelNameIsError(t *testing.T) {
	if _, err := Lex(": addi x0, x0, 0"); err == nil {
		t.Fatal("expected error for a bare colon with no preceding identifier")
	}
}

func TestLexCommentStripped(t *testing.T) {
	line, err := Lex("add x1, x2, x3 # a comment with : and , in it")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	want := []string{"add", "x1", "x2", "x3"}
	if len(line.Tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", line.Tokens, want)
	}
}

func TestLexUnterminatedStringIsError(t *testing.T) {
	if _, err := Lex(`.string "unterminated`); err == nil {
		t.Fatal("expected error for unterminated string literal")
	}
}

func TestLexUnterminatedCharIsError(t *testing.T) {
	if _, err := Lex(`li x1, 'a`); err == nil {
		t.Fatal("expected error for unterminated character literal")
	}
}

func TestLexCharLiteralIsOneToken(t *testing.T) {
	line, err := Lex(`li x1, 'a'`)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if line.Tokens[2] != "'a'" {
		t.Errorf("token = %q, want 'a'", line.Tokens[2])
	}
}

// TestCharLiteralOctalEscapeDecodesEndToEnd exercises scanCharLiteral's
// 3-digit octal consumption together with UserStringToInt's decode: the
// classic `'\101'` (octal 101 = 65 = 'A') must round-trip through both.
func TestCharLiteralOctalEscapeDecodesEndToEnd(t *testing.T) {
	line, err := Lex(`li x1, '\101'`)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	tok := line.Tokens[2]
	if tok != `'\101'` {
		t.Fatalf("token = %q, want '\\101'", tok)
	}
	v, ok, err := UserStringToInt(tok)
	if err != nil {
		t.Fatalf("UserStringToInt: %v", err)
	}
	if !ok {
		t.Fatal("UserStringToInt: ok = false, want true")
	}
	if v != 65 {
		t.Errorf("value = %d, want 65", v)
	}
}

func TestCharLiteralShortOctalEscape(t *testing.T) {
	v, ok, err := UserStringToInt(`'\7'`)
	if err != nil || !ok {
		t.Fatalf("UserStringToInt: v=%d ok=%v err=%v", v, ok, err)
	}
	if v != 7 {
		t.Errorf("value = %d, want 7", v)
	}
}
