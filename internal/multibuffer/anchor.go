package multibuffer

import (
	"github.com/shinyvision/multibuffer/internal/buffer"
	"github.com/shinyvision/multibuffer/internal/excerptid"
)

// Anchor is a stable position in the composition (spec §3 Anchor):
// (excerpt id, buffer id, in-buffer anchor, bias). ExcerptID may be the
// excerptid sentinels Min/Max to represent the absolute start/end of the
// composite document.
type Anchor struct {
	ExcerptID  excerptid.ID
	BufferID   buffer.ID
	TextAnchor buffer.TextAnchor
}

func (a Anchor) isSentinel() bool { return a.ExcerptID.IsMin() || a.ExcerptID.IsMax() }

// minAnchor and maxAnchor are the absolute composite start/end anchors.
func minAnchor() Anchor { return Anchor{ExcerptID: excerptid.Min()} }
func maxAnchor() Anchor { return Anchor{ExcerptID: excerptid.Max()} }

// RefreshedAnchor is one output entry of RefreshAnchors (spec §4.3.5):
// the original index, the (possibly retargeted) anchor, and whether its
// text position survived.
type RefreshedAnchor struct {
	InputIndex   int
	Anchor       Anchor
	KeptPosition bool
}

// AnchorAt builds an anchor at composite byte offset with the given bias
// (spec §4.3.5 anchor_at).
func (s Snapshot) AnchorAt(offset int, bias Bias) Anchor {
	index, overshoot, ok := s.tree.seekByOffset(offset, bias)
	if !ok {
		if offset <= 0 && bias == BiasLeft {
			return minAnchor()
		}
		return maxAnchor()
	}
	e := s.tree.At(index)
	b := bias
	if e.HasTrailingNewline() && overshoot == e.compositeLen() {
		overshoot--
		b = BiasRight
	}
	bufOffset := e.clipAnchor(e.startOffset() + overshoot)
	ta := bufferAnchorAt(e, bufOffset, bufferBias(b))
	return Anchor{ExcerptID: e.ID(), BufferID: e.BufferID(), TextAnchor: ta}
}

func bufferBias(b Bias) buffer.Bias {
	if b == BiasRight {
		return buffer.BiasRight
	}
	return buffer.BiasLeft
}

func compositeBias(b buffer.Bias) Bias {
	if b == buffer.BiasRight {
		return BiasRight
	}
	return BiasLeft
}

// bufferAnchorAt builds a buffer.TextAnchor at a raw buffer offset, at the
// excerpt's snapshot version (so it resolves relative to that snapshot).
func bufferAnchorAt(e Excerpt, offset int, bias buffer.Bias) buffer.TextAnchor {
	return buffer.TextAnchor{Version: e.snapshot.Version(), Offset: offset, Bias: bias}
}

// AnchorInExcerpt clamps textAnchor against excerptID's buffer range
// (spec §4.3.5 anchor_in_excerpt). ok is false if the excerpt is absent.
func (s Snapshot) AnchorInExcerpt(excerptID excerptid.ID, bufferID buffer.ID, ta buffer.TextAnchor) (Anchor, bool) {
	idx, found := s.tree.indexOfID(excerptID)
	if !found {
		return Anchor{}, false
	}
	e := s.tree.At(idx)
	off := e.snapshot.Resolve(ta)
	clamped := buffer.TextAnchor{Version: ta.Version, Offset: e.clipAnchor(off), Bias: ta.Bias}
	return Anchor{ExcerptID: excerptID, BufferID: bufferID, TextAnchor: clamped}, true
}

// SummaryForAnchor returns a's composite byte offset (spec §4.3.5
// summary_for_anchor, specialized to the bytes dimension since that is
// what every testable property in spec §8 exercises).
func (s Snapshot) SummaryForAnchor(a Anchor) int {
	if a.ExcerptID.IsMin() {
		return 0
	}
	if a.ExcerptID.IsMax() {
		return s.tree.Len()
	}
	idx, ok := s.tree.seekByID(a.ExcerptID, BiasLeft)
	if !ok {
		return 0
	}
	base := s.tree.OffsetOf(idx)
	e := s.tree.At(idx)
	if e.ID().Equal(a.ExcerptID) && e.BufferID() == a.BufferID {
		clamped := e.clipAnchor(e.snapshot.Resolve(a.TextAnchor))
		return base + (clamped - e.startOffset())
	}
	return base
}

// CanResolve reports whether a can currently be resolved (spec §3
// Resolvability invariant).
func (s Snapshot) CanResolve(a Anchor) bool {
	if a.isSentinel() {
		return true
	}
	idx, ok := s.tree.indexOfID(a.ExcerptID)
	if !ok {
		return false
	}
	e := s.tree.At(idx)
	return e.BufferID() == a.BufferID
}

// RefreshAnchors re-targets anchors after excerpt-list mutations (spec
// §4.3.5). Input order is arbitrary; output is sorted by the refreshed
// anchor's composite position.
func (s Snapshot) RefreshAnchors(anchors []Anchor) []RefreshedAnchor {
	out := make([]RefreshedAnchor, len(anchors))
	for i, a := range anchors {
		out[i] = RefreshedAnchor{InputIndex: i, Anchor: s.refreshOne(a), KeptPosition: false}
		out[i].KeptPosition = s.anchorKept(a, out[i].Anchor)
	}
	sortRefreshed(out, s)
	return out
}

func (s Snapshot) anchorKept(original, refreshed Anchor) bool {
	if original.isSentinel() {
		return true
	}
	return refreshed.ExcerptID.Equal(original.ExcerptID) && refreshed.BufferID == original.BufferID
}

func (s Snapshot) refreshOne(a Anchor) Anchor {
	if a.isSentinel() {
		return a
	}
	idx, found := s.tree.indexOfID(a.ExcerptID)
	if found {
		e := s.tree.At(idx)
		if e.contains(a.BufferID, a.TextAnchor) {
			return a
		}
	}
	// Try the excerpt the left-biased id seek lands on, then its neighbors.
	seekIdx, ok := s.tree.seekByID(a.ExcerptID, BiasLeft)
	candidates := []int{}
	if ok {
		candidates = append(candidates, seekIdx)
		if seekIdx+1 < s.tree.Count() {
			candidates = append(candidates, seekIdx+1)
		}
		if seekIdx-1 >= 0 {
			candidates = append(candidates, seekIdx-1)
		}
	}
	for _, ci := range candidates {
		e := s.tree.At(ci)
		if e.contains(a.BufferID, a.TextAnchor) {
			return Anchor{ExcerptID: e.ID(), BufferID: a.BufferID, TextAnchor: a.TextAnchor}
		}
	}
	return s.pinToAdjacentEdge(a, seekIdx, ok)
}

// pinToAdjacentEdge derives a new anchor pinned to an edge of an adjacent
// excerpt (spec §4.3.5, the "not kept" branch).
func (s Snapshot) pinToAdjacentEdge(a Anchor, seekIdx int, seekOK bool) Anchor {
	bias := compositeBias(a.TextAnchor.Bias)
	n := s.tree.Count()
	if n == 0 {
		return sentinelFor(bias)
	}
	nextIdx := seekIdx
	if seekOK && nextIdx < n {
		next := s.tree.At(nextIdx)
		off := next.clipAnchor(next.startOffset())
		return Anchor{
			ExcerptID:  next.ID(),
			BufferID:   next.BufferID(),
			TextAnchor: bufferAnchorAt(next, off, a.TextAnchor.Bias),
		}
	}
	prevIdx := seekIdx - 1
	if prevIdx >= 0 && prevIdx < n {
		prev := s.tree.At(prevIdx)
		off := prev.clipAnchor(prev.endOffset())
		return Anchor{
			ExcerptID:  prev.ID(),
			BufferID:   prev.BufferID(),
			TextAnchor: bufferAnchorAt(prev, off, a.TextAnchor.Bias),
		}
	}
	return sentinelFor(bias)
}

func sentinelFor(bias Bias) Anchor {
	if bias == BiasLeft {
		return minAnchor()
	}
	return maxAnchor()
}

func sortRefreshed(out []RefreshedAnchor, s Snapshot) {
	positions := make([]int, len(out))
	for i, r := range out {
		positions[i] = s.SummaryForAnchor(r.Anchor)
	}
	// insertion sort: refresh lists are small (one per live anchor in a
	// composition), and stability keeps ties in input order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && positions[j] < positions[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
			positions[j], positions[j-1] = positions[j-1], positions[j]
		}
	}
}
