package sim

// diff is everything one Step changed, enough to restore prior state:
// the PC before fetch, the first-seen-old-value of each register Exec
// wrote, and the first-seen-old-byte of each memory address Exec wrote.
// Recording only the *first* old value per slot (not every intermediate
// write within the same instruction) is what makes one diff equal one
// Undo step even for instructions that touch a location more than once.
type diff struct {
	pc   uint32
	regs map[int]uint32
	mem  map[uint32]byte
}

func newDiff(pc uint32) *diff {
	return &diff{pc: pc, regs: make(map[int]uint32), mem: make(map[uint32]byte)}
}

// undoJournal is the bounded ring of diffs backing Machine.Undo. Pushing
// past maxDepth silently discards the oldest entry: undo history is a
// debugging convenience, not a correctness requirement, so it has no
// need to grow unbounded over a long run.
type undoJournal struct {
	diffs    []*diff
	maxDepth int
}

func newUndoJournal(maxDepth int) *undoJournal {
	return &undoJournal{maxDepth: maxDepth}
}

func (j *undoJournal) push(d *diff) {
	j.diffs = append(j.diffs, d)
	if len(j.diffs) > j.maxDepth {
		j.diffs = j.diffs[1:]
	}
}

func (j *undoJournal) pop() (*diff, bool) {
	if len(j.diffs) == 0 {
		return nil, false
	}
	d := j.diffs[len(j.diffs)-1]
	j.diffs = j.diffs[:len(j.diffs)-1]
	return d, true
}

func (j *undoJournal) depth() int {
	return len(j.diffs)
}
