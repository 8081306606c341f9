// Package buffer is a minimal stand-in for the single-buffer text engine
// that a composition indexes. The composition treats buffers as opaque
// (see spec §1/§6); this package exists only so the engine has something
// concrete to drive edits, anchors and versions against.
package buffer

import "fmt"

// ID identifies a buffer within a Host. Buffers are referenced by id from
// excerpts so that a composition never needs to hold the buffer itself.
type ID string

// ReplicaID distinguishes concurrent editors of the same buffer.
type ReplicaID uint16

// Bias controls which side of an edit boundary an anchor sticks to.
type Bias int

const (
	// BiasLeft sticks before an insertion at the anchor's position.
	BiasLeft Bias = iota
	// BiasRight sticks after an insertion at the anchor's position.
	BiasRight
)

func (b Bias) String() string {
	if b == BiasRight {
		return "right"
	}
	return "left"
}

// Point is a (row, column) position, with column measured in bytes from
// the start of its row.
type Point struct {
	Row    uint32
	Column uint32
}

func (p Point) Less(o Point) bool {
	return p.Row < o.Row || (p.Row == o.Row && p.Column < o.Column)
}

func (p Point) LessEq(o Point) bool { return p.Less(o) || p == o }

// PointUTF16 mirrors Point but counts columns in UTF-16 code units, the
// unit LSP-shaped callers address positions in.
type PointUTF16 struct {
	Row    uint32
	Column uint32
}

func (p PointUTF16) Less(o PointUTF16) bool {
	return p.Row < o.Row || (p.Row == o.Row && p.Column < o.Column)
}

// Range is a half-open byte range [Start, End) within a buffer.
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// TextSummary is the monoidal aggregate of a run of text: byte length,
// the line/line-utf16 extent (as if laid end to end), and the longest row
// seen, matching spec §3's Excerpt.text_summary.
type TextSummary struct {
	Bytes         int
	Lines         Point
	LinesUTF16    PointUTF16
	LongestRow    uint32
	LongestRowLen uint32
}

// SumTextSummary concatenates two summaries in order (a followed by b).
func SumTextSummary(a, b TextSummary) TextSummary {
	var sum TextSummary
	sum.Bytes = a.Bytes + b.Bytes

	if b.Lines.Row == 0 {
		sum.Lines = Point{Row: a.Lines.Row, Column: a.Lines.Column + b.Lines.Column}
	} else {
		sum.Lines = Point{Row: a.Lines.Row + b.Lines.Row, Column: b.Lines.Column}
	}
	if b.LinesUTF16.Row == 0 {
		sum.LinesUTF16 = PointUTF16{Row: a.LinesUTF16.Row, Column: a.LinesUTF16.Column + b.LinesUTF16.Column}
	} else {
		sum.LinesUTF16 = PointUTF16{Row: a.LinesUTF16.Row + b.LinesUTF16.Row, Column: b.LinesUTF16.Column}
	}

	boundaryRowLen := a.LongestRowLen
	if a.Lines.Row == 0 {
		// a is a single partial row that b's first row continues.
		boundaryRowLen = a.LongestRowLen + b.firstRowLen()
	}
	sum.LongestRow, sum.LongestRowLen = a.LongestRow, a.LongestRowLen
	if boundaryRowLen > sum.LongestRowLen {
		sum.LongestRow, sum.LongestRowLen = a.Lines.Row, boundaryRowLen
	}
	if bLongest := a.Lines.Row + b.LongestRow; b.LongestRowLen > sum.LongestRowLen {
		sum.LongestRow, sum.LongestRowLen = bLongest, b.LongestRowLen
	}
	return sum
}

// firstRowLen approximates the byte length of a summary's first row: exact
// for a single-row summary, 0 for a multi-row one, so a boundary row whose
// first-row part lies in a multi-row summary can be missed as LongestRow.
func (s TextSummary) firstRowLen() uint32 {
	if s.Lines.Row > 0 {
		// Unknown without the source text; 0 is used only to decide whether
		// the boundary row is the overall longest.
		return 0
	}
	return s.LongestRowLen
}
