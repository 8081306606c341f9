package multibuffer

import (
	"github.com/shinyvision/multibuffer/internal/buffer"
	"github.com/shinyvision/multibuffer/internal/excerptid"
)

// ExcerptSummary is the tree-node aggregate spec §3 describes: the last
// excerpt id in a run, the max source row it reaches, and the summed
// text_summary including synthetic trailing newlines.
type ExcerptSummary struct {
	HasLastID bool
	LastID    excerptid.ID
	MaxRow    uint32
	Text      buffer.TextSummary
}

// excerptSummary is one Excerpt's own contribution to the aggregate,
// before it has been summed with any neighbor.
func excerptSummary(e Excerpt) ExcerptSummary {
	text := e.TextSummary()
	if e.HasTrailingNewline() {
		text = buffer.SumTextSummary(text, newlineSummary)
	}
	return ExcerptSummary{
		HasLastID: true,
		LastID:    e.ID(),
		MaxRow:    e.MaxBufferRow(),
		Text:      text,
	}
}

// newlineSummary is the TextSummary of a single synthetic '\n'.
var newlineSummary = buffer.TextSummaryOf([]byte("\n"))

// addSummary combines two adjacent summaries in tree order. It enforces
// the id-ordering invariant (spec §3): the appended summary's id, if any,
// must be strictly greater than the left summary's.
func addSummary(a, b ExcerptSummary) ExcerptSummary {
	if a.HasLastID && b.HasLastID && !a.LastID.Less(b.LastID) {
		panic("multibuffer: excerpt ids out of order in tree aggregate")
	}
	out := ExcerptSummary{Text: buffer.SumTextSummary(a.Text, b.Text)}
	if b.HasLastID {
		out.HasLastID = true
		out.LastID = b.LastID
	} else if a.HasLastID {
		out.HasLastID = true
		out.LastID = a.LastID
	}
	if b.MaxRow > a.MaxRow {
		out.MaxRow = b.MaxRow
	} else {
		out.MaxRow = a.MaxRow
	}
	return out
}
