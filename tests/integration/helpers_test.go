// Package integration_test runs whole programs end to end through the
// assembler, linker, and simulator, the way the teacher's
// tests/integration package drives full .s files through its pipeline
// instead of exercising one package's internals at a time.
package integration_test

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/lookbusy1344/riscv-edu/asm"
	"github.com/lookbusy1344/riscv-edu/linker"
	"github.com/lookbusy1344/riscv-edu/sim"
)

// assembleUnits assembles each source string as its own compilation unit
// and links them together, failing the test on any assembler or linker
// error so callers only need to handle the happy path.
func assembleUnits(t *testing.T, names []string, sources []string) *linker.LinkedProgram {
	t.Helper()

	programs := make([]*asm.Program, len(sources))
	for i, src := range sources {
		p := asm.NewProgram(names[i])
		asm.PassOne(p, strings.Split(strings.TrimSpace(src), "\n"))
		if p.Errors.HasErrors() {
			t.Fatalf("%s: pass one errors:\n%s", names[i], p.Errors.Error())
		}
		asm.PassTwo(p)
		if p.Errors.HasErrors() {
			t.Fatalf("%s: pass two errors:\n%s", names[i], p.Errors.Error())
		}
		programs[i] = p
	}

	linked, err := linker.Link(programs)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	return linked
}

// runProgram assembles, links, and runs src to completion (or until
// maxSteps), returning everything written to the simulated stdout and
// the final exit code.
func runProgram(t *testing.T, src, stdin string, maxSteps uint64) (stdout string, exitCode int32, m *sim.Machine) {
	t.Helper()

	linked := assembleUnits(t, []string{"unit"}, []string{src})

	var out bytes.Buffer
	m = sim.NewMachine(linked, &out, bufio.NewReader(strings.NewReader(stdin)), 0)
	if err := m.Run(maxSteps); err != nil {
		t.Fatalf("run: %v\noutput so far:\n%s", err, out.String())
	}
	return out.String(), m.ExitCode(), m
}
