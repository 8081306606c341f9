package buffer

// TextAnchor is a position within one buffer that survives later edits to
// that buffer. It is meaningful only relative to a Snapshot of the same
// buffer: Resolve walks the snapshot's edit log forward from the anchor's
// version to translate it.
type TextAnchor struct {
	Version int
	Offset  int
	Bias    Bias
}

// AnchorRange is a pair of anchors marking an excerpt's bounds in its
// buffer, built via anchor_before(start)/anchor_after(end) (spec §4.3.1).
type AnchorRange struct {
	Start, End TextAnchor
}

// subEdit is one (start, oldEnd) -> newText replacement, expressed in the
// byte coordinates of the buffer version it applies to. oldText retains
// what occupied [start, oldEnd) so an inverse edit (undo) can restore it
// without looking further back through the batch log.
type subEdit struct {
	start, oldEnd int
	oldText       []byte
	newText       []byte
}

func (e subEdit) oldLen() int { return e.oldEnd - e.start }
func (e subEdit) newLen() int { return len(e.newText) }

// batch is every subEdit applied atomically by one Buffer.Edit call,
// sorted by start and non-overlapping. It transitions the buffer from
// version fromVersion to fromVersion+1.
type batch struct {
	fromVersion int
	edits       []subEdit
}

// translate maps an offset expressed in the batch's "from" version into
// the coordinate space of the batch's "to" version, honoring bias when the
// offset falls inside a replaced range — including the zero-width case of
// a pure insertion, where start == oldEnd and the offset sitting exactly
// at that point is the only ambiguous one: Left sticks before the new
// text, Right sticks after it.
func (b batch) translate(offset int, bias Bias) int {
	delta := 0
	for _, e := range b.edits {
		if offset < e.start {
			return offset + delta
		}
		if offset > e.oldEnd || (offset == e.oldEnd && e.oldEnd > e.start) {
			delta += e.newLen() - e.oldLen()
			continue
		}
		if bias == BiasLeft {
			return e.start + delta
		}
		return e.start + delta + e.newLen()
	}
	return offset + delta
}

// Delta is a composite- or buffer-coordinate edit notification: the
// substring occupying newRange in the post-edit text replaces the
// substring that occupied oldRange pre-edit.
type Delta struct {
	OldRange Range
	NewRange Range
}

// deltas reports this batch's edits as (old, new) range pairs, both
// expressed in this batch's own before/after coordinate spaces.
func (b batch) deltas() []Delta {
	out := make([]Delta, 0, len(b.edits))
	delta := 0
	for _, e := range b.edits {
		newStart := e.start + delta
		out = append(out, Delta{
			OldRange: Range{e.start, e.oldEnd},
			NewRange: Range{newStart, newStart + e.newLen()},
		})
		delta += e.newLen() - e.oldLen()
	}
	return out
}
