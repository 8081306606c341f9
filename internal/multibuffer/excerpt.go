// Package multibuffer implements the composition engine: a virtual
// document assembled from an ordered, dynamically edited list of excerpts
// drawn from one or more buffer.Buffer collaborators (spec §1-§4).
package multibuffer

import (
	"github.com/shinyvision/multibuffer/internal/buffer"
	"github.com/shinyvision/multibuffer/internal/excerptid"
)

// Excerpt is an immutable view onto a contiguous anchored range of one
// buffer (spec §3 Excerpt). Rebuilding one (on sync, or after a buffer
// edit) means constructing a fresh value; nothing here is mutated in
// place.
type Excerpt struct {
	id       excerptid.ID
	bufferID buffer.ID
	snapshot buffer.Snapshot

	bufferRange buffer.AnchorRange // in-buffer anchors bounding this excerpt

	textSummary        buffer.TextSummary
	maxBufferRow       uint32
	hasTrailingNewline bool
}

// newExcerpt builds an Excerpt, computing its text_summary and
// max_buffer_row from the snapshot exactly as spec §4.2 requires.
func newExcerpt(id excerptid.ID, bufferID buffer.ID, snap buffer.Snapshot, rng buffer.AnchorRange, hasTrailingNewline bool) Excerpt {
	startOff := snap.Resolve(rng.Start)
	endOff := snap.Resolve(rng.End)
	return Excerpt{
		id:                 id,
		bufferID:           bufferID,
		snapshot:           snap,
		bufferRange:        rng,
		textSummary:        snap.Summary(buffer.Range{Start: startOff, End: endOff}),
		maxBufferRow:       snap.RowAt(endOff),
		hasTrailingNewline: hasTrailingNewline,
	}
}

// ID is this excerpt's stable locator in tree order.
func (e Excerpt) ID() excerptid.ID { return e.id }

// BufferID is the underlying buffer this excerpt is a view onto.
func (e Excerpt) BufferID() buffer.ID { return e.bufferID }

// TextSummary is the summary of the buffer's text in this excerpt's
// range, not including the synthetic trailing newline.
func (e Excerpt) TextSummary() buffer.TextSummary { return e.textSummary }

// MaxBufferRow is the source buffer row of range.end.
func (e Excerpt) MaxBufferRow() uint32 { return e.maxBufferRow }

// HasTrailingNewline reports whether a synthetic '\n' follows this
// excerpt in the composite (true for every excerpt except the last).
func (e Excerpt) HasTrailingNewline() bool { return e.hasTrailingNewline }

// compositeLen is the byte length this excerpt contributes to the
// composite document (spec §3 invariant).
func (e Excerpt) compositeLen() int {
	n := e.textSummary.Bytes
	if e.hasTrailingNewline {
		n++
	}
	return n
}

// startOffset/endOffset are this excerpt's bounds resolved in its own
// snapshot's buffer coordinates.
func (e Excerpt) startOffset() int { return e.snapshot.Resolve(e.bufferRange.Start) }
func (e Excerpt) endOffset() int   { return e.snapshot.Resolve(e.bufferRange.End) }

// text is this excerpt's contribution to the composite document,
// including its synthetic trailing newline if any.
func (e Excerpt) text() string {
	s := e.snapshot.Text(buffer.Range{Start: e.startOffset(), End: e.endOffset()})
	if e.hasTrailingNewline {
		s += "\n"
	}
	return s
}

// contains reports whether a (bufferID, text anchor) position falls
// within this excerpt's buffer range (spec §4.2 contains).
func (e Excerpt) contains(bufferID buffer.ID, a buffer.TextAnchor) bool {
	if bufferID != e.bufferID {
		return false
	}
	off := e.snapshot.Resolve(a)
	return e.startOffset() <= off && off <= e.endOffset()
}

// clipAnchor clamps a buffer offset into this excerpt's [start, end]
// range (spec §4.2 clip_anchor).
func (e Excerpt) clipAnchor(offset int) int {
	if offset < e.startOffset() {
		return e.startOffset()
	}
	if offset > e.endOffset() {
		return e.endOffset()
	}
	return offset
}

// withFreshSnapshot rebuilds this excerpt against a newer buffer
// snapshot, recomputing its summary (spec §4.3.4 sync, the "buffer_edited"
// and the "else" clone-with-new-snapshot branches both end up here).
func (e Excerpt) withFreshSnapshot(snap buffer.Snapshot) Excerpt {
	return newExcerpt(e.id, e.bufferID, snap, e.bufferRange, e.hasTrailingNewline)
}

// withTrailingNewline returns a copy of e with HasTrailingNewline set.
func (e Excerpt) withTrailingNewline(v bool) Excerpt {
	e.hasTrailingNewline = v
	return e
}
