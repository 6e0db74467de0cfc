package sim

import (
	"fmt"
	"sort"
	"strings"
)

// Stats accumulates per-opcode execution counts for the -stats flag.
// Trimmed from the teacher's PerformanceStatistics down to the one
// thing the spec's supplemented -stats feature asks for: how many times
// each mnemonic executed, and how many steps ran in total.
type Stats struct {
	Steps           uint64
	InstructionCounts map[string]uint64
}

func newStats() *Stats {
	return &Stats{InstructionCounts: make(map[string]uint64)}
}

func (s *Stats) record(mnemonic string) {
	s.Steps++
	s.InstructionCounts[mnemonic]++
}

// Summary renders a count-descending report, mnemonic ties broken
// alphabetically so output is deterministic.
func (s *Stats) Summary() string {
	type row struct {
		mnemonic string
		count    uint64
	}
	rows := make([]row, 0, len(s.InstructionCounts))
	for m, c := range s.InstructionCounts {
		rows = append(rows, row{m, c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].mnemonic < rows[j].mnemonic
	})

	var b strings.Builder
	fmt.Fprintf(&b, "total steps: %d\n", s.Steps)
	for _, r := range rows {
		fmt.Fprintf(&b, "%-8s %d\n", r.mnemonic, r.count)
	}
	return b.String()
}
