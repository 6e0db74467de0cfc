package reloc_test

import (
	"testing"

	"github.com/lookbusy1344/riscv-edu/isa"
	"github.com/lookbusy1344/riscv-edu/reloc"
)

func TestImmAbsRelocatorRoundTrip(t *testing.T) {
	mc, err := reloc.ImmAbsRelocator(0, 0, 0xABC)
	if err != nil {
		t.Fatal(err)
	}
	if got := mc.GetField(isa.IMM_11_0); got != 0xABC {
		t.Errorf("got 0x%X, want 0xABC", got)
	}
}

func TestImmAbsStoreRelocatorRoundTrip(t *testing.T) {
	neg := int32(-100)
	mc, err := reloc.ImmAbsStoreRelocator(0, 0, uint32(neg))
	if err != nil {
		t.Fatal(err)
	}
	lo := mc.GetField(isa.IMM_4_0)
	hi := mc.GetField(isa.IMM_11_5)
	combined := isa.SignExtend(hi<<5|lo, 12)
	if combined != -100 {
		t.Errorf("round-trip = %d, want -100", combined)
	}
}

func TestImmAbsStoreRelocatorRangeCheck(t *testing.T) {
	if _, err := reloc.ImmAbsStoreRelocator(0, 0, uint32(int32(5000))); err == nil {
		t.Error("expected range error for out-of-range store immediate")
	}
}

// pcRelCombine rebuilds the target the PCRel-Hi/Lo pair encodes, mirroring
// what the simulator's auipc+addi pair would compute.
func pcRelCombine(auipcPC uint32, hi, lo uint32) uint32 {
	return auipcPC + (hi << 12) + uint32(isa.SignExtend(lo, 12))
}

func TestPCRelHiLoRoundTrip(t *testing.T) {
	cases := []struct{ auipcPC, target uint32 }{
		{0x1000, 0x1000},
		{0x1000, 0x2000},
		{0x1000, 0x0},
		{0x8000, 0x8000 + 0x7FFFF800}, // near the high-half boundary the design notes flag
		{0x8000, 0x8000 - 4},
	}
	for _, c := range cases {
		hiWord, err := reloc.PCRelHiRelocator(0, c.auipcPC, c.target)
		if err != nil {
			t.Fatal(err)
		}
		loPC := c.auipcPC + 4
		loWord, err := reloc.PCRelLoRelocator(0, loPC, c.target)
		if err != nil {
			t.Fatal(err)
		}
		hi := hiWord.GetField(isa.IMM_31_12)
		lo := loWord.GetField(isa.IMM_11_0)
		got := pcRelCombine(c.auipcPC, hi, lo)
		if got != c.target {
			t.Errorf("auipcPC=0x%X target=0x%X: round-trip got 0x%X", c.auipcPC, c.target, got)
		}
	}
}

func TestJALRelocatorRoundTrip(t *testing.T) {
	mc, err := reloc.JALRelocator(0, 0x1000, 0x1000+100)
	if err != nil {
		t.Fatal(err)
	}
	u20 := mc.GetField(isa.IMM_J20)
	u101 := mc.GetField(isa.IMM_J101)
	u11 := mc.GetField(isa.IMM_J11)
	u1912 := mc.GetField(isa.IMM_J1912)
	offset := u20<<20 | u1912<<12 | u11<<11 | u101<<1
	if got := isa.SignExtend(offset, 21); got != 100 {
		t.Errorf("jal round-trip = %d, want 100", got)
	}
}

func TestJALRelocatorRangeCheck(t *testing.T) {
	if _, err := reloc.JALRelocator(0, 0, 1<<21); err == nil {
		t.Error("expected range error for oversized jal offset")
	}
	if _, err := reloc.JALRelocator(0, 0, 3); err == nil {
		t.Error("expected odd-offset error")
	}
}

func TestBranchRelocatorRoundTrip(t *testing.T) {
	mc, err := reloc.BranchRelocator(0, 0x2000, 0x2000-20)
	if err != nil {
		t.Fatal(err)
	}
	u12 := mc.GetField(isa.IMM_B12)
	u105 := mc.GetField(isa.IMM_B105)
	u41 := mc.GetField(isa.IMM_B41)
	u11 := mc.GetField(isa.IMM_B11)
	offset := u12<<12 | u11<<11 | u105<<5 | u41<<1
	if got := isa.SignExtend(offset, 13); got != -20 {
		t.Errorf("branch round-trip = %d, want -20", got)
	}
}

func TestBranchRelocatorRangeCheck(t *testing.T) {
	if _, err := reloc.BranchRelocator(0, 0, 5000); err == nil {
		t.Error("expected range error")
	}
}

func TestPatchWordLittleEndian(t *testing.T) {
	data := make([]byte, 8)
	if err := reloc.PatchWord(data, 2, 0x11223344); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x44, 0x33, 0x22, 0x11}
	for i, b := range want {
		if data[2+i] != b {
			t.Errorf("byte %d = 0x%X, want 0x%X", i, data[2+i], b)
		}
	}
}

func TestPatchWordOutOfRange(t *testing.T) {
	data := make([]byte, 2)
	if err := reloc.PatchWord(data, 0, 0); err == nil {
		t.Error("expected out-of-range error")
	}
}
