package debugger

import (
	"fmt"
	"strconv"
)

func (d *Debugger) cmdRun(_ []string) error {
	d.Running = true
	d.Println("Running...")
	return nil
}

func (d *Debugger) cmdStep(args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		n = v
	}
	for i := 0; i < n; i++ {
		cont, err := d.Machine.Step()
		if err != nil {
			d.Printf("Runtime error: %v\n", err)
			return nil
		}
		if !cont {
			d.Printf("Program exited with code %d\n", d.Machine.ExitCode())
			return nil
		}
	}
	d.Printf("PC=0x%08X\n", d.Machine.PC())
	return nil
}

func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <address|label>")
	}
	addr, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	bp := d.Breakpoints.Add(addr)
	d.Machine.SetBreakpoint(addr)
	d.Printf("Breakpoint %d at 0x%08X\n", bp.ID, addr)
	return nil
}

func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: delete <breakpoint-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID %q", args[0])
	}
	for _, bp := range d.Breakpoints.All() {
		if bp.ID == id {
			d.Machine.ClearBreakpoint(bp.Address)
		}
	}
	if err := d.Breakpoints.Delete(id); err != nil {
		return err
	}
	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

func (d *Debugger) cmdUndo(args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid undo count %q", args[0])
		}
		n = v
	}
	for i := 0; i < n; i++ {
		if err := d.Machine.Undo(); err != nil {
			d.Printf("%v\n", err)
			return nil
		}
	}
	d.Printf("PC=0x%08X\n", d.Machine.PC())
	return nil
}

func (d *Debugger) cmdRegs(_ []string) error {
	regs := d.Machine.Registers()
	for i := 0; i < len(regs); i += 4 {
		d.Printf("x%-2d=0x%08X  x%-2d=0x%08X  x%-2d=0x%08X  x%-2d=0x%08X\n",
			i, regs[i], i+1, regs[i+1], i+2, regs[i+2], i+3, regs[i+3])
	}
	d.Printf("pc =0x%08X\n", d.Machine.PC())
	return nil
}

func (d *Debugger) cmdMem(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: mem <address> <length>")
	}
	addr, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	length, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid length %q", args[1])
	}

	for i := 0; i < length; i += 16 {
		d.Printf("0x%08X: ", addr+uint32(i))
		for j := 0; j < 16 && i+j < length; j++ {
			b, err := d.Machine.Peek(addr + uint32(i+j))
			if err != nil {
				d.Printf("?? ")
				continue
			}
			d.Printf("%02X ", b)
		}
		d.Println()
	}
	return nil
}

func (d *Debugger) cmdHelp(_ []string) error {
	d.Println("break <addr>    set a breakpoint")
	d.Println("delete <id>     delete a breakpoint")
	d.Println("step [n]        execute n instructions (default 1)")
	d.Println("run             continue until a breakpoint or halt")
	d.Println("undo [n]        undo n instructions (default 1)")
	d.Println("regs            print all registers")
	d.Println("mem <addr> <n>  dump n bytes of memory")
	d.Println("quit            exit the debugger")
	return nil
}
