package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// RunCLI runs the interactive command-line debugger over in/out, the
// way the teacher's RunCLI drives a bufio.Scanner over os.Stdin.
func RunCLI(d *Debugger, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "(riscv-dbg) ")

		if !scanner.Scan() {
			break
		}
		cmdLine := strings.TrimSpace(scanner.Text())

		if cmdLine == "quit" || cmdLine == "q" || cmdLine == "exit" {
			fmt.Fprintln(out, "Exiting debugger...")
			break
		}

		if err := d.ExecuteCommand(cmdLine); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if output := d.GetOutput(); output != "" {
			fmt.Fprint(out, output)
		}

		for d.Running {
			if shouldBreak, reason := d.ShouldBreak(); shouldBreak {
				d.Running = false
				fmt.Fprintf(out, "Stopped: %s at PC=0x%08X\n", reason, d.Machine.PC())
				break
			}

			cont, err := d.Machine.Step()
			if err != nil {
				fmt.Fprintf(out, "Runtime error: %v\n", err)
				d.Running = false
				break
			}
			if !cont {
				fmt.Fprintf(out, "Program exited with code %d\n", d.Machine.ExitCode())
				d.Running = false
				break
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	return nil
}
