package debugger

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/lookbusy1344/riscv-edu/asm"
	"github.com/lookbusy1344/riscv-edu/linker"
	"github.com/lookbusy1344/riscv-edu/sim"
)

const testSource = `
.globl main
main:
	addi x1, x0, 5
	addi x2, x1, 5
	add x3, x1, x2
	ecall
`

func newTestDebugger(t *testing.T) (*Debugger, *bytes.Buffer) {
	t.Helper()

	p := asm.NewProgram("unit")
	asm.PassOne(p, strings.Split(strings.TrimSpace(testSource), "\n"))
	if p.Errors.HasErrors() {
		t.Fatalf("pass one errors: %s", p.Errors.Error())
	}
	asm.PassTwo(p)
	if p.Errors.HasErrors() {
		t.Fatalf("pass two errors: %s", p.Errors.Error())
	}

	linked, err := linker.Link([]*asm.Program{p})
	if err != nil {
		t.Fatalf("link: %v", err)
	}

	var out bytes.Buffer
	m := sim.NewMachine(linked, &out, bufio.NewReader(strings.NewReader("")), 0)
	return NewDebugger(m, linked.GlobalTable, 100), &out
}

func TestDebuggerResolveAddressSymbol(t *testing.T) {
	d, _ := newTestDebugger(t)

	addr, err := d.ResolveAddress("main")
	if err != nil {
		t.Fatalf("ResolveAddress: %v", err)
	}
	if addr != d.Symbols["main"] {
		t.Errorf("ResolveAddress(main) = 0x%X, want 0x%X", addr, d.Symbols["main"])
	}
}

func TestDebuggerResolveAddressHexAndDecimal(t *testing.T) {
	d, _ := newTestDebugger(t)

	if addr, err := d.ResolveAddress("0x10"); err != nil || addr != 0x10 {
		t.Errorf("ResolveAddress(0x10) = (0x%X, %v), want (0x10, nil)", addr, err)
	}
	if addr, err := d.ResolveAddress("16"); err != nil || addr != 16 {
		t.Errorf("ResolveAddress(16) = (%d, %v), want (16, nil)", addr, err)
	}
	if _, err := d.ResolveAddress("nosuchlabel"); err == nil {
		t.Error("ResolveAddress of an unknown token should fail")
	}
}

func TestDebuggerBreakAndStep(t *testing.T) {
	d, _ := newTestDebugger(t)

	if err := d.ExecuteCommand("break main"); err != nil {
		t.Fatalf("break: %v", err)
	}
	if len(d.Breakpoints.All()) != 1 {
		t.Fatalf("expected one breakpoint, got %d", len(d.Breakpoints.All()))
	}

	if err := d.ExecuteCommand("step 3"); err != nil {
		t.Fatalf("step: %v", err)
	}
	regs := d.Machine.Registers()
	if regs[1] != 5 || regs[2] != 10 || regs[3] != 15 {
		t.Errorf("registers after 3 steps = %v, want x1=5 x2=10 x3=15", regs[:4])
	}
}

func TestDebuggerUndo(t *testing.T) {
	d, _ := newTestDebugger(t)

	if err := d.ExecuteCommand("step 1"); err != nil {
		t.Fatalf("step: %v", err)
	}
	if d.Machine.Registers()[1] != 5 {
		t.Fatalf("x1 after step = %d, want 5", d.Machine.Registers()[1])
	}

	if err := d.ExecuteCommand("undo"); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if d.Machine.Registers()[1] != 0 {
		t.Errorf("x1 after undo = %d, want 0", d.Machine.Registers()[1])
	}
}

func TestDebuggerEmptyLineRepeatsLastCommand(t *testing.T) {
	d, _ := newTestDebugger(t)

	if err := d.ExecuteCommand("step 1"); err != nil {
		t.Fatalf("step: %v", err)
	}
	if err := d.ExecuteCommand(""); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if d.Machine.Registers()[2] != 10 {
		t.Errorf("x2 after repeated step = %d, want 10", d.Machine.Registers()[2])
	}
}

func TestDebuggerUnknownCommandFails(t *testing.T) {
	d, _ := newTestDebugger(t)
	if err := d.ExecuteCommand("frobnicate"); err == nil {
		t.Error("unknown command should return an error")
	}
}

func TestDebuggerShouldBreak(t *testing.T) {
	d, _ := newTestDebugger(t)

	addr, err := d.ResolveAddress("main")
	if err != nil {
		t.Fatalf("ResolveAddress: %v", err)
	}
	d.Machine.SetBreakpoint(addr)

	hit, reason := d.ShouldBreak()
	if !hit {
		t.Fatal("ShouldBreak at a breakpoint address should report true")
	}
	if reason == "" {
		t.Error("ShouldBreak should name the breakpoint that fired")
	}
}
