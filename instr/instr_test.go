package instr_test

import (
	"testing"

	"github.com/lookbusy1344/riscv-edu/instr"
	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/reloc"
)

// fakeResolver has no labels; used for instructions whose test operands
// are bare numerals.
type fakeResolver struct {
	labels map[string]int32
	offset uint32
}

func (f *fakeResolver) Lookup(name string) (int32, bool) {
	v, ok := f.labels[name]
	return v, ok
}
func (f *fakeResolver) CurrentTextOffset() uint32 { return f.offset }
func (f *fakeResolver) AddTextRelocation(string, int32, reloc.Func) {}

func newResolver() *fakeResolver {
	return &fakeResolver{labels: map[string]int32{}}
}

// fakeState is a minimal in-memory instr.State for exercising Exec
// functions directly, independent of package sim.
type fakeState struct {
	regs [32]uint32
	pc   uint32
	mem  map[uint32]byte
}

func newFakeState() *fakeState {
	return &fakeState{mem: map[uint32]byte{}}
}

func (s *fakeState) GetReg(i int) uint32 {
	if i == 0 {
		return 0
	}
	return s.regs[i]
}
func (s *fakeState) SetReg(i int, v uint32) {
	if i == 0 {
		return
	}
	s.regs[i] = v
}
func (s *fakeState) PC() uint32        { return s.pc }
func (s *fakeState) SetPC(addr uint32) { s.pc = addr }

func (s *fakeState) ReadU8(addr uint32) (uint8, error) { return s.mem[addr], nil }
func (s *fakeState) ReadU16(addr uint32) (uint16, error) {
	return uint16(s.mem[addr]) | uint16(s.mem[addr+1])<<8, nil
}
func (s *fakeState) ReadU32(addr uint32) (uint32, error) {
	return uint32(s.mem[addr]) | uint32(s.mem[addr+1])<<8 | uint32(s.mem[addr+2])<<16 | uint32(s.mem[addr+3])<<24, nil
}
func (s *fakeState) WriteU8(addr uint32, v uint8) error { s.mem[addr] = v; return nil }
func (s *fakeState) WriteU16(addr uint32, v uint16) error {
	s.mem[addr] = byte(v)
	s.mem[addr+1] = byte(v >> 8)
	return nil
}
func (s *fakeState) WriteU32(addr uint32, v uint32) error {
	s.mem[addr] = byte(v)
	s.mem[addr+1] = byte(v >> 8)
	s.mem[addr+2] = byte(v >> 16)
	s.mem[addr+3] = byte(v >> 24)
	return nil
}
func (s *fakeState) Ecall() (bool, error) { return true, nil }

func parseOne(t *testing.T, mnemonic string, toks []string) isa.MachineCode {
	t.Helper()
	in, ok := instr.Lookup(mnemonic)
	if !ok {
		t.Fatalf("no such instruction %q", mnemonic)
	}
	mc, err := in.Parse(toks, in.Format.Fill(), newResolver())
	if err != nil {
		t.Fatalf("parse %s %v: %v", mnemonic, toks, err)
	}
	if !in.Format.Matches(mc) {
		t.Fatalf("parsed %s %v does not match its own format: %s", mnemonic, toks, mc)
	}
	return mc
}

func TestRoundTripDecode(t *testing.T) {
	cases := []struct {
		mnemonic string
		toks     []string
	}{
		{"add", []string{"x1", "x2", "x3"}},
		{"sub", []string{"x1", "x2", "x3"}},
		{"addi", []string{"x1", "x2", "100"}},
		{"slli", []string{"x1", "x2", "5"}},
		{"lw", []string{"x1", "16", "x2"}},
		{"sw", []string{"x1", "-8", "x2"}},
		{"beq", []string{"x1", "x2", "16"}},
		{"jal", []string{"x1", "100"}},
		{"jalr", []string{"x1", "4", "x2"}},
		{"lui", []string{"x1", "0x12345"}},
		{"auipc", []string{"x1", "0x1"}},
		{"ecall", nil},
		{"mul", []string{"x1", "x2", "x3"}},
		{"div", []string{"x1", "x2", "x3"}},
	}

	for _, c := range cases {
		t.Run(c.mnemonic, func(t *testing.T) {
			mc := parseOne(t, c.mnemonic, c.toks)
			decoded, err := instr.Decode(mc)
			if err != nil {
				t.Fatalf("decode %s: %v", mc, err)
			}
			if decoded.Mnemonic != c.mnemonic {
				t.Errorf("decoded as %q, want %q", decoded.Mnemonic, c.mnemonic)
			}
		})
	}
}

func TestArithmeticScenario(t *testing.T) {
	// addi x1 x0 5 / addi x2 x1 5 / add x3 x1 x2 / andi x3 x3 8
	st := newFakeState()
	r := newResolver()

	prog := []struct {
		mnemonic string
		toks     []string
	}{
		{"addi", []string{"x1", "x0", "5"}},
		{"addi", []string{"x2", "x1", "5"}},
		{"add", []string{"x3", "x1", "x2"}},
		{"andi", []string{"x3", "x3", "8"}},
	}
	for _, p := range prog {
		in, _ := instr.Lookup(p.mnemonic)
		mc, err := in.Parse(p.toks, in.Format.Fill(), r)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := in.Exec(mc, st); err != nil {
			t.Fatal(err)
		}
	}
	if st.GetReg(1) != 5 || st.GetReg(2) != 10 || st.GetReg(3) != 8 {
		t.Errorf("x1=%d x2=%d x3=%d, want 5 10 8", st.GetReg(1), st.GetReg(2), st.GetReg(3))
	}
}

func TestLoadStoreScenario(t *testing.T) {
	st := newFakeState()
	r := newResolver()

	addi, _ := instr.Lookup("addi")
	mc, _ := addi.Parse([]string{"x1", "x0", "100"}, addi.Format.Fill(), r)
	addi.Exec(mc, st)

	sw, _ := instr.Lookup("sw")
	mc, _ = sw.Parse([]string{"x1", "60", "x0"}, sw.Format.Fill(), r)
	if _, err := sw.Exec(mc, st); err != nil {
		t.Fatal(err)
	}

	lw, _ := instr.Lookup("lw")
	mc, _ = lw.Parse([]string{"x2", "-40", "x1"}, lw.Format.Fill(), r)
	if _, err := lw.Exec(mc, st); err != nil {
		t.Fatal(err)
	}

	if st.GetReg(1) != 100 || st.GetReg(2) != 100 {
		t.Errorf("x1=%d x2=%d, want 100 100", st.GetReg(1), st.GetReg(2))
	}
	word, _ := st.ReadU32(60)
	if word != 100 {
		t.Errorf("memory[60]=%d, want 100", word)
	}
}

func TestUnsignedBranchNotTaken(t *testing.T) {
	// addi x1 x0 -1 ; addi x2 x0 1 ; bltu x1 x2 <skip addi x3,x0,7>
	st := newFakeState()
	r := newResolver()

	addi, _ := instr.Lookup("addi")
	mc, _ := addi.Parse([]string{"x1", "x0", "-1"}, addi.Format.Fill(), r)
	addi.Exec(mc, st)
	mc, _ = addi.Parse([]string{"x2", "x0", "1"}, addi.Format.Fill(), r)
	addi.Exec(mc, st)

	bltu, _ := instr.Lookup("bltu")
	mc, _ = bltu.Parse([]string{"x1", "x2", "8"}, bltu.Format.Fill(), r)
	if _, err := bltu.Exec(mc, st); err != nil {
		t.Fatal(err)
	}
	// 0xFFFFFFFF is not <u 1, so the branch must not be taken: the two addi
	// Execs left PC at 8 (the bltu), and a not-taken branch advances it by 4.
	if st.PC() != 12 {
		t.Errorf("PC=%d, want 12 (branch should not have been taken)", st.PC())
	}
}

func TestDivByZero(t *testing.T) {
	st := newFakeState()
	st.regs[1] = 7
	st.regs[2] = 0
	r := newResolver()

	div, _ := instr.Lookup("div")
	mc, _ := div.Parse([]string{"x3", "x1", "x2"}, div.Format.Fill(), r)
	div.Exec(mc, st)
	if st.GetReg(3) != 0xFFFFFFFF {
		t.Errorf("div by zero quotient = 0x%X, want 0xFFFFFFFF", st.GetReg(3))
	}

	rem, _ := instr.Lookup("rem")
	mc, _ = rem.Parse([]string{"x4", "x1", "x2"}, rem.Format.Fill(), r)
	rem.Exec(mc, st)
	if st.GetReg(4) != 7 {
		t.Errorf("rem by zero = %d, want 7 (dividend)", st.GetReg(4))
	}
}

func TestDivOverflow(t *testing.T) {
	st := newFakeState()
	st.regs[1] = 0x80000000 // INT_MIN
	st.regs[2] = 0xFFFFFFFF // -1
	r := newResolver()

	div, _ := instr.Lookup("div")
	mc, _ := div.Parse([]string{"x3", "x1", "x2"}, div.Format.Fill(), r)
	div.Exec(mc, st)
	if st.GetReg(3) != 0x80000000 {
		t.Errorf("INT_MIN/-1 quotient = 0x%X, want 0x80000000", st.GetReg(3))
	}

	rem, _ := instr.Lookup("rem")
	mc, _ = rem.Parse([]string{"x4", "x1", "x2"}, rem.Format.Fill(), r)
	rem.Exec(mc, st)
	if st.GetReg(4) != 0 {
		t.Errorf("INT_MIN/-1 remainder = %d, want 0", st.GetReg(4))
	}
}

func TestLuiAuipc(t *testing.T) {
	st := newFakeState()
	st.pc = 0x1000
	r := newResolver()

	lui, _ := instr.Lookup("lui")
	mc, _ := lui.Parse([]string{"x1", "0x12345"}, lui.Format.Fill(), r)
	lui.Exec(mc, st)
	if st.GetReg(1) != 0x12345000 {
		t.Errorf("lui x1 = 0x%X, want 0x12345000", st.GetReg(1))
	}

	auipc, _ := instr.Lookup("auipc")
	mc, _ = auipc.Parse([]string{"x2", "0x1"}, auipc.Format.Fill(), r)
	auipc.Exec(mc, st)
	// lui advanced PC to 0x1004, so auipc adds 0x1000 to that.
	if st.GetReg(2) != 0x1004+0x1000 {
		t.Errorf("auipc x2 = 0x%X, want 0x2004", st.GetReg(2))
	}
}

func TestX0ReadsZeroWritesIgnored(t *testing.T) {
	st := newFakeState()
	r := newResolver()
	addi, _ := instr.Lookup("addi")
	mc, _ := addi.Parse([]string{"x0", "x0", "99"}, addi.Format.Fill(), r)
	addi.Exec(mc, st)
	if st.GetReg(0) != 0 {
		t.Errorf("x0 = %d, want 0 even after a write attempt", st.GetReg(0))
	}
}
