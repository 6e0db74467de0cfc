package isa

// Memory map byte addresses (§6.1). These double as the per-unit virtual
// offsets the assembler assigns to rodata/data labels: a label's raw
// offset already carries the segment's base, so the segment it belongs
// to can be recovered by comparing the offset against these thresholds
// alone, without a separate tag.
const (
	TextBegin   uint32 = 0x00000000
	ConstBegin  uint32 = 0x00010000
	StaticBegin uint32 = 0x10000000
	HeapBegin   uint32 = 0x10040000
	StackEnd    uint32 = 0x7FFFFFF0
)

// Segment identifies which region of the memory map an offset falls in.
type Segment int

const (
	SegText Segment = iota
	SegRodata
	SegData
)

// ClassifySegment reports which segment a label offset belongs to, per
// the thresholds text < ConstBegin <= rodata < StaticBegin <= data.
func ClassifySegment(offset uint32) Segment {
	switch {
	case offset < ConstBegin:
		return SegText
	case offset < StaticBegin:
		return SegRodata
	default:
		return SegData
	}
}
