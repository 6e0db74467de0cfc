package asm

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/riscv-edu/instr"
)

func assemble(t *testing.T, src string) *Program {
	t.Helper()
	p := NewProgram("unit")
	lines := strings.Split(strings.TrimSpace(src), "\n")
	PassOne(p, lines)
	if p.Errors.HasErrors() {
		t.Fatalf("pass one errors: %s", p.Errors.Error())
	}
	PassTwo(p)
	if p.Errors.HasErrors() {
		t.Fatalf("pass two errors: %s", p.Errors.Error())
	}
	return p
}

func mnemonicAt(t *testing.T, p *Program, i int) string {
	t.Helper()
	in, err := instr.Decode(p.Insts[i])
	if err != nil {
		t.Fatalf("decode inst %d: %v", i, err)
	}
	return in.Mnemonic
}

func TestArithmeticScenario(t *testing.T) {
	p := assemble(t, `
		addi x1, x0, 5
		addi x2, x1, 5
		add x3, x1, x2
		andi x3, x3, 8
	`)
	if len(p.Insts) != 4 {
		t.Fatalf("got %d instructions, want 4", len(p.Insts))
	}
	want := []string{"addi", "addi", "add", "andi"}
	for i, w := range want {
		if got := mnemonicAt(t, p, i); got != w {
			t.Errorf("inst %d = %s, want %s", i, got, w)
		}
	}
}

func TestDuplicateLabelFails(t *testing.T) {
	p := NewProgram("unit")
	PassOne(p, []string{"start: addi x1, x0, 1", "start: addi x2, x0, 2"})
	if !p.Errors.HasErrors() {
		t.Fatal("expected a duplicate-label error")
	}
}

func TestBranchLoopScenario(t *testing.T) {
	p := assemble(t, `
		add x2, x2, x3
		addi x1, x0, 5
		start: add x2, x2, x3
		addi x3, x3, 1
		bne x3, x1, start
	`)
	if len(p.Insts) != 5 {
		t.Fatalf("got %d instructions, want 5", len(p.Insts))
	}
	if off, ok := p.Lookup("start"); !ok || off != 8 {
		t.Errorf("start label = %d, ok=%v, want 8", off, ok)
	}
}

func TestEquivChain(t *testing.T) {
	p := assemble(t, `
		.equiv A, 3
		.equiv B, A
		.equiv C, B
		li x1, C
	`)
	if len(p.Insts) != 1 {
		t.Fatalf("got %d instructions, want 1 (li 3 fits in addi)", len(p.Insts))
	}
	if v, ok := p.Lookup("C"); !ok || v != 3 {
		t.Errorf("C resolved to %d, ok=%v, want 3", v, ok)
	}
}

func TestEquivCircularityFails(t *testing.T) {
	p := NewProgram("unit")
	PassOne(p, []string{".equiv A, B", ".equiv B, A"})
	if p.Errors.HasErrors() {
		t.Fatalf("unexpected pass-one errors: %s", p.Errors.Error())
	}
	PassTwo(p)
	if !p.Errors.HasErrors() {
		t.Fatal("expected a circularity error")
	}
}

func TestLiSplitsAtHighHalfBoundary(t *testing.T) {
	p := assemble(t, "li x1, 0x7FFFF800")
	if len(p.Insts) != 2 {
		t.Fatalf("got %d instructions, want 2 (lui+addi)", len(p.Insts))
	}
	if m := mnemonicAt(t, p, 0); m != "lui" {
		t.Errorf("first inst = %s, want lui", m)
	}
	if m := mnemonicAt(t, p, 1); m != "addi" {
		t.Errorf("second inst = %s, want addi", m)
	}
}

func TestLiMinInt32Boundary(t *testing.T) {
	p := assemble(t, "li x1, -2147483648")
	if len(p.Insts) != 2 {
		t.Fatalf("got %d instructions, want 2 (lui+addi)", len(p.Insts))
	}
}

func TestDataDirectives(t *testing.T) {
	p := NewProgram("unit")
	PassOne(p, []string{".data", "v: .word 42", ".byte 1, -1, 255", ".string \"hi\""})
	if p.Errors.HasErrors() {
		t.Fatalf("unexpected errors: %s", p.Errors.Error())
	}
	PassTwo(p)
	if p.Errors.HasErrors() {
		t.Fatalf("unexpected pass-two errors: %s", p.Errors.Error())
	}
	if len(p.DataSegment) != 4+3+3 {
		t.Fatalf("data segment length = %d, want 10", len(p.DataSegment))
	}
	if p.DataSegment[0] != 42 {
		t.Errorf("word low byte = %d, want 42", p.DataSegment[0])
	}
}

func TestInstructionInDataSegmentIsError(t *testing.T) {
	p := NewProgram("unit")
	PassOne(p, []string{".data", "addi x1, x0, 1"})
	if !p.Errors.HasErrors() {
		t.Fatal("expected an error for emitting an instruction in .data")
	}
}

func TestCallPseudoRegistersPairedRelocations(t *testing.T) {
	p := assemble(t, `
		call target
		target: addi x1, x0, 0
	`)
	if len(p.Insts) != 3 {
		t.Fatalf("got %d instructions, want 3 (auipc, jalr, addi)", len(p.Insts))
	}
	if len(p.TextRelocations) != 2 {
		t.Fatalf("got %d text relocations, want 2 (PCRel-Hi/Lo pair)", len(p.TextRelocations))
	}
	if p.TextRelocations[0].TextOffset != 0 || p.TextRelocations[1].TextOffset != 4 {
		t.Errorf("relocation offsets = %d, %d, want 0, 4", p.TextRelocations[0].TextOffset, p.TextRelocations[1].TextOffset)
	}
}
