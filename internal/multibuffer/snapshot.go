package multibuffer

import (
	"strings"

	"github.com/shinyvision/multibuffer/internal/buffer"
)

// Snapshot is an immutable-by-clone view of a Composition (spec §3, §4.1
// "Composition snapshot"): the excerpt tree plus the aggregate flags a
// caller needs without reconciling again.
type Snapshot struct {
	replicaID buffer.ReplicaID
	tree      Tree

	isDirty     bool
	hasConflict bool

	parseGeneration       int
	selectionsGeneration  int
	diagnosticsGeneration int
}

func (s Snapshot) ReplicaID() buffer.ReplicaID  { return s.replicaID }
func (s Snapshot) IsDirty() bool                { return s.isDirty }
func (s Snapshot) HasConflict() bool            { return s.hasConflict }
func (s Snapshot) ParseGeneration() int         { return s.parseGeneration }
func (s Snapshot) SelectionsGeneration() int    { return s.selectionsGeneration }
func (s Snapshot) DiagnosticsGeneration() int   { return s.diagnosticsGeneration }

// Len is the composite byte length (spec §8 invariant 1).
func (s Snapshot) Len() int { return s.tree.Len() }

// ExcerptCount is the number of excerpts currently in the composition.
func (s Snapshot) ExcerptCount() int { return s.tree.Count() }

// AsSingleton returns the sole excerpt's buffer id and snapshot when the
// composition holds exactly one excerpt spanning that whole buffer,
// enabling the singleton fast paths spec §4.3 calls for throughout.
func (s Snapshot) AsSingleton() (buffer.ID, buffer.Snapshot, bool) {
	if s.tree.Count() != 1 {
		return "", buffer.Snapshot{}, false
	}
	e := s.tree.At(0)
	if e.startOffset() != 0 || e.endOffset() != e.snapshot.Len() {
		return "", buffer.Snapshot{}, false
	}
	return e.BufferID(), e.snapshot, true
}

// Text returns the full composite document text: each excerpt's buffer
// sub-range in order, separated by '\n' between consecutive excerpts and
// only between (spec §8 invariant 1).
func (s Snapshot) Text() string {
	var sb strings.Builder
	sb.Grow(s.tree.Len())
	for _, e := range s.tree.Excerpts() {
		sb.WriteString(e.text())
	}
	return sb.String()
}

// TextRange returns the composite text in [start, end).
func (s Snapshot) TextRange(rng buffer.Range) string {
	full := s.Text()
	if rng.Start < 0 {
		rng.Start = 0
	}
	if rng.End > len(full) {
		rng.End = len(full)
	}
	if rng.Start > rng.End {
		return ""
	}
	return full[rng.Start:rng.End]
}

// ClipOffset clamps offset into [0, len], matching buffer.Buffer's
// ClipOffset at the composite level (spec §4.4 projections).
func (s Snapshot) ClipOffset(offset int, bias Bias) int {
	if offset < 0 {
		return 0
	}
	if offset > s.tree.Len() {
		return s.tree.Len()
	}
	return offset
}

// BufferRows enumerates the source buffer rows that composite row r, and
// every following composite row through the end of the document,
// contribute: one excerpt-row-span at a time, the gaps at excerpt
// boundaries (the synthetic newlines) simply absent from the list (spec
// §4.4 row iterator). An empty composition yields a single-row sentinel
// at r==0 and nothing thereafter (spec §8 boundary behavior).
func (s Snapshot) BufferRows(r int) []uint32 {
	if s.tree.Count() == 0 {
		if r == 0 {
			return []uint32{0}
		}
		return nil
	}
	index, overshootRows, ok := s.tree.seekByRow(r, BiasRight)
	if !ok {
		return nil
	}
	var out []uint32
	e := s.tree.At(index)
	startRow := e.startRow() + uint32(overshootRows)
	for row := startRow; row <= e.MaxBufferRow(); row++ {
		out = append(out, row)
	}
	for i := index + 1; i < s.tree.Count(); i++ {
		e = s.tree.At(i)
		for row := e.startRow(); row <= e.MaxBufferRow(); row++ {
			out = append(out, row)
		}
	}
	return out
}

// startRow is the source buffer row of this excerpt's start anchor.
func (e Excerpt) startRow() uint32 { return e.snapshot.RowAt(e.startOffset()) }

// TextSummaryForRange sums the buffer's summary over each straddled
// sub-range within rng, plus one synthetic-newline summary per crossed
// excerpt boundary inside the range (spec §4.4).
func (s Snapshot) TextSummaryForRange(rng buffer.Range) buffer.TextSummary {
	var sum buffer.TextSummary
	startIdx, startOver, ok := s.tree.seekByOffset(rng.Start, BiasRight)
	if !ok {
		return sum
	}
	remaining := rng.End - rng.Start
	idx, overshoot := startIdx, startOver
	for remaining > 0 && idx < s.tree.Count() {
		e := s.tree.At(idx)
		avail := e.compositeLen() - overshoot
		take := remaining
		if take > avail {
			take = avail
		}
		bodyAvail := e.textSummary.Bytes - overshoot
		if bodyAvail < 0 {
			bodyAvail = 0
		}
		bodyTake := take
		if bodyTake > bodyAvail {
			bodyTake = bodyAvail
		}
		if bodyTake > 0 {
			s0 := e.startOffset() + overshoot
			sum = buffer.SumTextSummary(sum, e.snapshot.Summary(buffer.Range{Start: s0, End: s0 + bodyTake}))
		}
		if take > bodyTake {
			sum = buffer.SumTextSummary(sum, newlineSummary)
		}
		remaining -= take
		overshoot = 0
		idx++
	}
	return sum
}
