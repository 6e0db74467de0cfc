// Command riscv-edu assembles, links, and runs (or debugs) RV32IM
// assembly source, the way the teacher's main.go drives its ARM
// emulator: parse flags, build the pipeline, then either run to
// completion or hand off to the CLI debugger.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/lookbusy1344/riscv-edu/asm"
	"github.com/lookbusy1344/riscv-edu/config"
	"github.com/lookbusy1344/riscv-edu/debugger"
	"github.com/lookbusy1344/riscv-edu/lexer"
	"github.com/lookbusy1344/riscv-edu/linker"
	"github.com/lookbusy1344/riscv-edu/sim"
)

func main() {
	var (
		entry       = flag.String("entry", "", "override the linked start address (default: the address of global main)")
		maxCycles   = flag.Uint64("max-cycles", 0, "maximum cycles before halting the run (0 = config default)")
		stackSize   = flag.Uint("stack-size", 0, "reserved stack region size in bytes; sp falling below it faults (0 = config default)")
		debugMode   = flag.Bool("debug", false, "start the interactive CLI debugger instead of running to completion")
		configPath  = flag.String("config", "", "path to a TOML config file (default: platform config dir)")
		dumpSymbols = flag.Bool("dump-symbols", false, "assemble/link, print the global symbol table, and exit")
		showStats   = flag.Bool("stats", false, "print per-opcode execution counts after the run")
	)
	flag.Usage = printHelp
	flag.Parse()

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *maxCycles > 0 {
		cfg.Execution.MaxCycles = *maxCycles
	}
	if *stackSize > 0 {
		cfg.Execution.StackSize = uint32(*stackSize)
	}

	linked, err := assembleAndLink(flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}

	if *entry != "" {
		addr, ok, err := lexer.UserStringToInt(*entry)
		if err != nil || !ok {
			log.Fatalf("invalid -entry address %q", *entry)
		}
		linked.StartPC = uint32(addr)
	}

	if *dumpSymbols {
		dumpSymbolTable(linked.GlobalTable)
		return
	}

	machine := sim.NewMachine(linked, os.Stdout, bufio.NewReader(os.Stdin), cfg.Debugger.UndoDepth)
	machine.SetLimits(cfg.Execution.StackSize, cfg.Execution.HeapSize)

	if *debugMode {
		dbg := debugger.NewDebugger(machine, linked.GlobalTable, cfg.Debugger.HistorySize)
		if err := debugger.RunCLI(dbg, os.Stdin, os.Stdout); err != nil {
			log.Fatalf("debugger: %v", err)
		}
		return
	}

	if err := machine.Run(cfg.Execution.MaxCycles); err != nil {
		log.Fatalf("runtime error: %v", err)
	}

	if *showStats {
		fmt.Println(machine.Stats().Summary())
	}
	os.Exit(int(machine.ExitCode()))
}

// assembleAndLink runs every source file through pass one and pass two,
// stopping before pass two for any unit whose pass one produced errors
// (§4.3 step 7), then links the resulting units (§4.8).
func assembleAndLink(paths []string) (*linker.LinkedProgram, error) {
	programs := make([]*asm.Program, 0, len(paths))

	for _, path := range paths {
		src, err := os.ReadFile(path) // #nosec G304 -- user-specified assembly source path
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		prog := asm.NewProgram(path)
		asm.PassOne(prog, strings.Split(string(src), "\n"))
		if prog.Errors.HasErrors() {
			return nil, fmt.Errorf("assembling %s:\n%s", path, prog.Errors.Error())
		}
		for _, w := range prog.Errors.Warnings {
			fmt.Fprintln(os.Stderr, w.String())
		}

		asm.PassTwo(prog)
		if prog.Errors.HasErrors() {
			return nil, fmt.Errorf("assembling %s:\n%s", path, prog.Errors.Error())
		}

		programs = append(programs, prog)
	}

	linked, err := linker.Link(programs)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	return linked, nil
}

func dumpSymbolTable(globals map[string]uint32) {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return globals[names[i]] < globals[names[j]] })

	fmt.Printf("%-30s %s\n", "Name", "Address")
	for _, name := range names {
		fmt.Printf("%-30s 0x%08X\n", name, globals[name])
	}
	fmt.Printf("\nTotal symbols: %d\n", len(names))
}

func printHelp() {
	fmt.Printf(`riscv-edu — RV32IM assembler, linker, and simulator

Usage: riscv-edu [options] <source.s> [more-sources.s ...]

Options:
  -debug            Start the interactive CLI debugger after linking
  -config PATH      Load settings from a TOML config file
  -entry ADDR       Override the start address (hex 0x.../decimal; default: global main)
  -max-cycles N     Maximum cycles before halting (default: config execution.max_cycles)
  -stack-size N     Reserved stack region size in bytes; sp falling below it faults (default: config execution.stack_size)
  -dump-symbols     Print the resolved global symbol table and exit
  -stats            Print per-opcode execution counts after running

Examples:
  riscv-edu examples/fib.s
  riscv-edu -debug examples/fib.s
  riscv-edu -dump-symbols lib.s main.s

Debugger commands (when started with -debug):
%s
`, debuggerHelpText())
}

func debuggerHelpText() string {
	return "  break <addr>    delete <id>    step [n]    run\n" +
		"  undo [n]        regs           mem <addr> <len>    quit"
}
