package sim

import (
	"fmt"
	"strings"
)

// Environment call numbers (§6.4), passed in a7.
const (
	ecallPrintInt        = 1
	ecallReadString      = 8
	ecallPrintString     = 4
	ecallSbrk            = 9
	ecallExit            = 10
	ecallPrintChar       = 11
	ecallFillLineBuffer  = 18
	ecallExit2           = 17
)

// Ecall implements instr.State: it dispatches on a7, the way the
// teacher's ExecuteSWI dispatches on a SWI's immediate. halted=true ends
// the Run loop without it being a fault.
func (m *Machine) Ecall() (bool, error) {
	switch m.GetReg(a7Reg) {
	case ecallPrintInt:
		fmt.Fprintf(m.out, "%d", int32(m.GetReg(a0Reg)))
		return false, nil

	case ecallPrintString:
		return false, m.writeString(m.GetReg(a0Reg))

	case ecallPrintChar:
		fmt.Fprintf(m.out, "%c", rune(m.GetReg(a0Reg)))
		return false, nil

	case ecallSbrk:
		n := int32(m.GetReg(a0Reg))
		old := m.heapBreak
		next := uint32(int64(m.heapBreak) + int64(n))
		if m.heapLimit != 0 && n > 0 && next > m.heapLimit {
			return false, &AccessError{PC: m.pc, Addr: next, Size: 0, reason: "sbrk exceeded the configured heap size"}
		}
		m.heapBreak = next
		m.SetReg(a0Reg, old)
		return false, nil

	case ecallExit:
		m.exitCode = 0
		return true, nil

	case ecallExit2:
		m.exitCode = int32(m.GetReg(a0Reg))
		return true, nil

	case ecallFillLineBuffer:
		return false, m.fillLineBuffer()

	case ecallReadString:
		return false, m.readStringFromLineBuffer(m.GetReg(a1Reg), m.GetReg(a2Reg))

	default:
		return false, fmt.Errorf("unimplemented ecall %d", m.GetReg(a7Reg))
	}
}

// writeString prints the NUL-terminated string starting at addr, byte
// by byte the way the teacher's handleWriteString does, so an
// unterminated string faults through the ordinary ReadU8 access check
// instead of scanning memory unbounded.
func (m *Machine) writeString(addr uint32) error {
	for {
		b, err := m.ReadU8(addr)
		if err != nil {
			return err
		}
		if b == 0 {
			return nil
		}
		fmt.Fprintf(m.out, "%c", b)
		addr++
	}
}

// fillLineBuffer reads one line from stdin into the machine's internal
// line buffer, returning its length in a0 (or -1 on EOF with nothing
// read), for a later read_string to copy out of.
func (m *Machine) fillLineBuffer() error {
	line, err := m.stdin.ReadString('\n')
	if err != nil && line == "" {
		m.SetReg(a0Reg, 0xFFFFFFFF)
		m.lineBuffer = nil
		return nil
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	m.lineBuffer = []byte(line)
	m.SetReg(a0Reg, uint32(len(m.lineBuffer)))
	return nil
}

// readStringFromLineBuffer copies up to max bytes of the line buffer
// that fill_line_buffer last produced into memory at dest, returning
// the count copied in a0.
func (m *Machine) readStringFromLineBuffer(dest, max uint32) error {
	n := uint32(len(m.lineBuffer))
	if n > max {
		n = max
	}
	for i := uint32(0); i < n; i++ {
		if err := m.WriteU8(dest+i, m.lineBuffer[i]); err != nil {
			return err
		}
	}
	m.SetReg(a0Reg, n)
	return nil
}
