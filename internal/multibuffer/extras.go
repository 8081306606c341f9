package multibuffer

import (
	"github.com/shinyvision/multibuffer/internal/buffer"
	"github.com/shinyvision/multibuffer/internal/excerptid"
)

// ExcerptBoundary is one seam between excerpts in the composite (original
// Zed multi_buffer.rs's excerpt_boundaries_in_range, distilled out of
// spec.md but restored per SPEC_FULL.md §12: editor gutters use this to
// know where to draw a divider).
type ExcerptBoundary struct {
	CompositeOffset int
	Prev            excerptid.ID // the excerpt before the seam; boundaries lie only between two excerpts
	Next            excerptid.ID
	StartsNewBuffer bool
}

// ExcerptBoundaries lists every excerpt seam inside rng, in composite
// order (SPEC_FULL.md §12).
func (s Snapshot) ExcerptBoundaries(rng buffer.Range) []ExcerptBoundary {
	var out []ExcerptBoundary
	excerpts := s.tree.Excerpts()
	offset := 0
	for i, e := range excerpts {
		boundaryOffset := offset + e.compositeLen()
		if i+1 < len(excerpts) && boundaryOffset >= rng.Start && boundaryOffset <= rng.End {
			next := excerpts[i+1]
			out = append(out, ExcerptBoundary{
				CompositeOffset: boundaryOffset,
				Prev:            e.ID(),
				Next:            next.ID(),
				StartsNewBuffer: next.BufferID() != e.BufferID(),
			})
		}
		offset = boundaryOffset
	}
	return out
}

// LineLen translates composite row to its owning excerpt's buffer row and
// delegates, per SPEC_FULL.md §12 (the original's composite-level
// line_len wrapper, thin the way internal/state/document.go:GetLine is).
func (c *Composition) LineLen(row uint32) int {
	snap := c.Snapshot()
	idx, overshoot, ok := snap.tree.seekByRow(int(row), BiasRight)
	if !ok {
		return 0
	}
	e := snap.tree.At(idx)
	st := c.bufferStates[e.BufferID()]
	if st == nil {
		return 0
	}
	return st.buf.LineLen(e.startRow() + uint32(overshoot))
}

// IndentSizeForLine is LineLen's sibling wrapper.
func (c *Composition) IndentSizeForLine(row uint32) int {
	snap := c.Snapshot()
	idx, overshoot, ok := snap.tree.seekByRow(int(row), BiasRight)
	if !ok {
		return 0
	}
	e := snap.tree.At(idx)
	st := c.bufferStates[e.BufferID()]
	if st == nil {
		return 0
	}
	return st.buf.IndentColumnForLine(e.startRow() + uint32(overshoot))
}

// Excerpt looks up an excerpt by id directly, without going through an
// anchor (SPEC_FULL.md §12 resolve_excerpt/excerpt(id)); a small
// introspection accessor with no caller inside this module.
func (s Snapshot) Excerpt(id excerptid.ID) (Excerpt, bool) {
	idx, ok := s.tree.indexOfID(id)
	if !ok {
		return Excerpt{}, false
	}
	return s.tree.At(idx), true
}

// DiagnosticsSummary rolls up error/warning counts across every excerpted
// buffer (SPEC_FULL.md §12), folding over bufferState the same way
// sync already folds "did any buffer advance" across bufferStates.
type DiagnosticsSummary struct {
	ErrorCount   int
	WarningCount int
}

func (c *Composition) DiagnosticsSummary() DiagnosticsSummary {
	var sum DiagnosticsSummary
	seen := make(map[buffer.ID]bool)
	for _, e := range c.tree.Excerpts() {
		if seen[e.BufferID()] {
			continue
		}
		seen[e.BufferID()] = true
		st := c.bufferStates[e.BufferID()]
		if st == nil {
			continue
		}
		snap := st.buf.Snapshot()
		for _, d := range snap.DiagnosticsInRange(buffer.Range{Start: 0, End: snap.Len()}) {
			switch d.Severity {
			case buffer.SeverityError:
				sum.ErrorCount++
			case buffer.SeverityWarning:
				sum.WarningCount++
			}
		}
	}
	return sum
}
