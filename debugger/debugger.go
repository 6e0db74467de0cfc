// Package debugger is a CLI front end over a sim.Machine: breakpoints,
// single-stepping, undo, and register/memory inspection, run as a REPL
// the way the teacher's debugger package drives a vm.VM. The teacher's
// TUI/GUI frontends and watchpoint/expression-evaluator machinery have
// no counterpart here — out of scope for a command-line-only debugger.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/riscv-edu/sim"
)

// Debugger wraps a sim.Machine with breakpoint management, command
// history, and a buffered output stream the REPL prints after each
// command, mirroring the teacher's Debugger/Output/GetOutput pattern.
type Debugger struct {
	Machine *sim.Machine

	Breakpoints *BreakpointManager
	History     *CommandHistory

	Running bool
	Symbols map[string]uint32

	LastCommand string

	Output strings.Builder
}

func NewDebugger(m *sim.Machine, symbols map[string]uint32, historySize int) *Debugger {
	return &Debugger{
		Machine:     m,
		Breakpoints: NewBreakpointManager(),
		History:     NewCommandHistory(historySize),
		Symbols:     symbols,
	}
}

// ResolveAddress accepts a label name, a 0x-prefixed hex literal, or a
// decimal literal.
func (d *Debugger) ResolveAddress(tok string) (uint32, error) {
	if addr, ok := d.Symbols[tok]; ok {
		return addr, nil
	}
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		v, err := strconv.ParseUint(tok[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid address %q", tok)
		}
		return uint32(v), nil
	}
	v, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", tok)
	}
	return uint32(v), nil
}

// ExecuteCommand parses and dispatches one REPL line. An empty line
// repeats the last command, the way gdb-style debuggers treat a bare
// Enter at the step/next prompt.
func (d *Debugger) ExecuteCommand(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		line = d.LastCommand
	}
	if line != "" {
		d.History.Add(line)
		d.LastCommand = line
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	return d.handleCommand(strings.ToLower(parts[0]), parts[1:])
}

func (d *Debugger) handleCommand(cmd string, args []string) error {
	switch cmd {
	case "run", "r":
		return d.cmdRun(args)
	case "step", "s":
		return d.cmdStep(args)
	case "break", "b":
		return d.cmdBreak(args)
	case "delete", "del":
		return d.cmdDelete(args)
	case "undo":
		return d.cmdUndo(args)
	case "regs":
		return d.cmdRegs(args)
	case "mem":
		return d.cmdMem(args)
	case "help", "h", "?":
		return d.cmdHelp(args)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// ShouldBreak reports whether execution must pause before the next step
// (a breakpoint at the current PC), per §4.9. Breakpoints added through
// the debugger are reported by ID; one set directly on the Machine is
// reported by address.
func (d *Debugger) ShouldBreak() (bool, string) {
	if bp := d.Breakpoints.ProcessHit(d.Machine.PC()); bp != nil {
		return true, fmt.Sprintf("breakpoint %d", bp.ID)
	}
	if d.Machine.HasBreakpoint(d.Machine.PC()) {
		return true, fmt.Sprintf("breakpoint at 0x%08X", d.Machine.PC())
	}
	return false, ""
}

func (d *Debugger) GetOutput() string {
	out := d.Output.String()
	d.Output.Reset()
	return out
}

func (d *Debugger) Printf(format string, args ...any) {
	fmt.Fprintf(&d.Output, format, args...)
}

func (d *Debugger) Println(args ...any) {
	fmt.Fprintln(&d.Output, args...)
}
