package multibuffer

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/shinyvision/multibuffer/internal/buffer"
)

// Chunk is one piece of composite text, tagged with the excerpt it came
// from (spec §4.4 Chunks; the "optional highlight style" itself is a
// presentation concern this engine doesn't own, so it is omitted).
type Chunk struct {
	Text string
}

// Chunks walks the tree, for each straddled excerpt emitting its buffer
// sub-range's text, then a footer chunk for the synthetic trailing
// newline where the range crosses it (spec §4.4).
func (s Snapshot) Chunks(rng buffer.Range) []Chunk {
	var out []Chunk
	idx, overshoot, ok := s.tree.seekByOffset(rng.Start, BiasRight)
	if !ok {
		return nil
	}
	remaining := rng.End - rng.Start
	for remaining > 0 && idx < s.tree.Count() {
		e := s.tree.At(idx)
		bodyAvail := e.textSummary.Bytes - overshoot
		if bodyAvail < 0 {
			bodyAvail = 0
		}
		bodyTake := remaining
		if bodyTake > bodyAvail {
			bodyTake = bodyAvail
		}
		if bodyTake > 0 {
			s0 := e.startOffset() + overshoot
			out = append(out, Chunk{Text: e.snapshot.Text(buffer.Range{Start: s0, End: s0 + bodyTake})})
			remaining -= bodyTake
		}
		if remaining > 0 && overshoot+bodyTake < e.compositeLen() {
			out = append(out, Chunk{Text: "\n"})
			remaining--
		}
		overshoot = 0
		idx++
	}
	return out
}

// Bytes returns the raw composite bytes in rng (spec §4.4 Bytes).
func (s Snapshot) Bytes(rng buffer.Range) []byte {
	chunks := s.Chunks(rng)
	n := 0
	for _, c := range chunks {
		n += len(c.Text)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c.Text...)
	}
	return out
}

// ReversedBytes returns the composite bytes before offset, in reverse
// byte order (spec §4.4 "Reversed chars at offset").
func (s Snapshot) ReversedBytes(offset int) []byte {
	fwd := s.Bytes(buffer.Range{Start: 0, End: offset})
	for i, j := 0, len(fwd)-1; i < j; i, j = i+1, j-1 {
		fwd[i], fwd[j] = fwd[j], fwd[i]
	}
	return fwd
}

// OffsetToPoint projects a composite byte offset to a composite Point,
// by seeking to the owning excerpt and translating the in-excerpt
// overshoot through the buffer (spec §4.4 projections). Singleton
// compositions take this same general path (it produces the same result
// as delegating to the buffer; see the AsSingleton fast path in Edit for
// where a singleton shortcut actually matters: avoiding a full routeEdits
// fan-out).
func (s Snapshot) OffsetToPoint(offset int) buffer.Point {
	idx, overshoot, ok := s.tree.seekByOffset(offset, BiasRight)
	if !ok {
		if s.tree.Count() == 0 {
			return buffer.Point{}
		}
		e := s.tree.At(s.tree.Count() - 1)
		return buffer.Point{Row: uint32(s.tree.cumRows[s.tree.Count()-1]) + e.textSummary.Lines.Row, Column: e.textSummary.Lines.Column}
	}
	e := s.tree.At(idx)
	bodyOff := overshoot
	if bodyOff > e.textSummary.Bytes {
		bodyOff = e.textSummary.Bytes
	}
	rel := e.snapshot.Summary(buffer.Range{Start: e.startOffset(), End: e.startOffset() + bodyOff}).Lines
	row := uint32(s.tree.cumRows[idx]) + rel.Row
	col := rel.Column
	if overshoot > e.textSummary.Bytes {
		// fell into the synthetic trailing newline
		row++
		col = 0
	}
	return buffer.Point{Row: row, Column: col}
}

// PointToOffset is OffsetToPoint's inverse (spec §8 invariant 2).
func (s Snapshot) PointToOffset(p buffer.Point) int {
	idx, overshootRows, ok := s.tree.seekByRow(int(p.Row), BiasRight)
	if !ok {
		return s.tree.Len()
	}
	e := s.tree.At(idx)
	bufRow := e.startRow() + uint32(overshootRows)
	off := pointWithinExcerptToOffset(e, bufRow, p.Column)
	return s.tree.OffsetOf(idx) + off
}

func pointWithinExcerptToOffset(e Excerpt, bufRow uint32, col uint32) int {
	start := e.startOffset()
	// Find the byte offset of bufRow's start within the excerpt's buffer,
	// then add col, clamped to the excerpt's end.
	content := e.snapshot.Bytes()
	rowStart := start
	row := e.startRow()
	for i := start; i < e.endOffset() && row < bufRow; i++ {
		if content[i] == '\n' {
			row++
			rowStart = i + 1
		}
	}
	off := rowStart + int(col)
	if off > e.endOffset() {
		off = e.endOffset()
	}
	return off - start
}

// OffsetToPointUTF16 projects a composite byte offset to a composite
// UTF-16 point (spec §4.4 offset_to_point_utf16), mirroring
// OffsetToPoint but reading the UTF-16 dimension every buffer.Summary
// already carries alongside the byte one.
func (s Snapshot) OffsetToPointUTF16(offset int) buffer.PointUTF16 {
	idx, overshoot, ok := s.tree.seekByOffset(offset, BiasRight)
	if !ok {
		if s.tree.Count() == 0 {
			return buffer.PointUTF16{}
		}
		e := s.tree.At(s.tree.Count() - 1)
		return buffer.PointUTF16{Row: uint32(s.tree.cumRows[s.tree.Count()-1]) + e.textSummary.LinesUTF16.Row, Column: e.textSummary.LinesUTF16.Column}
	}
	e := s.tree.At(idx)
	bodyOff := overshoot
	if bodyOff > e.textSummary.Bytes {
		bodyOff = e.textSummary.Bytes
	}
	rel := e.snapshot.Summary(buffer.Range{Start: e.startOffset(), End: e.startOffset() + bodyOff}).LinesUTF16
	row := uint32(s.tree.cumRows[idx]) + rel.Row
	col := rel.Column
	if overshoot > e.textSummary.Bytes {
		// fell into the synthetic trailing newline
		row++
		col = 0
	}
	return buffer.PointUTF16{Row: row, Column: col}
}

// PointUTF16ToOffset is OffsetToPointUTF16's inverse (spec §8 invariant
// 2's "analogous UTF-16 round-trip"), seeking by row exactly as
// PointToOffset does (seekByUTF16Point delegates to the same cumRows
// index) and then walking the owning excerpt's runes to find the byte
// offset col UTF-16 code units into that row.
func (s Snapshot) PointUTF16ToOffset(p buffer.PointUTF16) int {
	idx, overshootRows, ok := s.tree.seekByUTF16Point(p, BiasRight)
	if !ok {
		return s.tree.Len()
	}
	e := s.tree.At(idx)
	bufRow := e.startRow() + uint32(overshootRows)
	off := pointUTF16WithinExcerptToOffset(e, bufRow, p.Column)
	return s.tree.OffsetOf(idx) + off
}

// ClipPointUTF16 clamps p to the nearest valid composite position by
// round-tripping it through PointUTF16ToOffset/OffsetToPointUTF16 (spec
// §4.4 clip_point_utf16) — both already clamp out-of-range rows/columns
// on their own boundary-overflow paths, so composing them is exactly the
// clamp ClipOffset performs for plain byte offsets.
func (s Snapshot) ClipPointUTF16(p buffer.PointUTF16) buffer.PointUTF16 {
	return s.OffsetToPointUTF16(s.PointUTF16ToOffset(p))
}

func pointUTF16WithinExcerptToOffset(e Excerpt, bufRow uint32, col uint32) int {
	start := e.startOffset()
	content := e.snapshot.Bytes()
	rowStart := start
	row := e.startRow()
	i := start
	for ; i < e.endOffset() && row < bufRow; i++ {
		if content[i] == '\n' {
			row++
			rowStart = i + 1
		}
	}
	// Walk rowStart forward decoding runes, counting UTF-16 code units per
	// rune exactly as buffer.TextSummaryOf does, until col units are
	// consumed or the row ends.
	end := e.endOffset()
	off := rowStart
	units := uint32(0)
	for off < end && content[off] != '\n' && units < col {
		r, size := utf8.DecodeRune(content[off:end])
		if n := utf16.RuneLen(r); n > 0 {
			units += uint32(n)
		} else {
			units++
		}
		off += size
	}
	if off > end {
		off = end
	}
	return off - start
}
