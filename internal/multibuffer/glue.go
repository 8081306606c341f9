package multibuffer

import (
	"context"
	"sort"

	"github.com/shinyvision/multibuffer/internal/buffer"
	"github.com/shinyvision/multibuffer/internal/host"
)

// Completion mirrors buffer.Completion but carries a composite anchor
// range instead of a buffer-local one (spec §4.6 completions).
type Completion struct {
	Label       string
	InsertText  string
	OldRange    Anchor // anchor_before(start) pinned into the owning excerpt; End resolved the same way
	OldRangeEnd Anchor
}

// TextAnchorForPosition resolves a composite offset to its owning
// buffer and text anchor (spec §6 text_anchor_for_position).
func (c *Composition) TextAnchorForPosition(offset int) (buffer.ID, buffer.TextAnchor, bool) {
	snap := c.Snapshot()
	a := snap.AnchorAt(offset, BiasLeft)
	if a.isSentinel() {
		return "", buffer.TextAnchor{}, false
	}
	return a.BufferID, a.TextAnchor, true
}

// Completions resolves pos to a (buffer, anchor), asks that buffer for
// completions, then rewrites each completion's old_range from buffer
// anchors to composite anchors pinned into the owning excerpt (spec
// §4.6).
func (c *Composition) Completions(pos int) ([]Completion, error) {
	snap := c.Snapshot()
	a := snap.AnchorAt(pos, BiasLeft)
	if a.isSentinel() {
		return nil, nil
	}
	st := c.bufferStates[a.BufferID]
	if st == nil {
		return nil, nil
	}
	offset := st.buf.Snapshot().Resolve(a.TextAnchor)
	raw, err := st.buf.Completions(offset)
	if err != nil {
		return nil, err
	}
	out := make([]Completion, 0, len(raw))
	for _, rc := range raw {
		startAnchor, startOK := snap.AnchorInExcerpt(a.ExcerptID, a.BufferID, st.buf.AnchorBefore(rc.OldRange.Start))
		endAnchor, endOK := snap.AnchorInExcerpt(a.ExcerptID, a.BufferID, st.buf.AnchorBefore(rc.OldRange.End))
		if !startOK || !endOK {
			continue
		}
		out = append(out, Completion{
			Label:       rc.Label,
			InsertText:  rc.InsertText,
			OldRange:    startAnchor,
			OldRangeEnd: endAnchor,
		})
	}
	return out, nil
}

// IsCompletionTrigger is a pure predicate (spec §4.6): true if text is a
// single alphanumeric/underscore character, or equals one of the owning
// buffer's language-server trigger strings.
func (c *Composition) IsCompletionTrigger(pos int, text string) bool {
	snap := c.Snapshot()
	a := snap.AnchorAt(pos, BiasLeft)
	if a.isSentinel() {
		return false
	}
	st := c.bufferStates[a.BufferID]
	if st == nil {
		return false
	}
	return st.buf.IsCompletionTrigger(text)
}

// ApplyAdditionalEditsForCompletion forwards to the owning buffer.
func (c *Composition) ApplyAdditionalEditsForCompletion(bufferID buffer.ID, comp buffer.Completion) []Delta {
	st := c.bufferStates[bufferID]
	if st == nil {
		return nil
	}
	st.buf.ApplyAdditionalEditsForCompletion(comp)
	return c.afterBufferEdits()
}

// SetActiveSelections partitions composite selections by excerpt/buffer,
// clips each to excerpt bounds, coalesces overlapping sorted selections
// per buffer, and pushes the result to each buffer; buffers with no
// incoming selections have theirs cleared (spec §4.6).
func (c *Composition) SetActiveSelections(replicaID buffer.ReplicaID, selections []buffer.Range) {
	byBuffer := make(map[buffer.ID][]buffer.Range)
	for _, sel := range selections {
		idx, _, ok := c.tree.seekByOffset(sel.Start, BiasRight)
		if !ok {
			continue
		}
		endIdx, _, endOK := c.tree.seekByOffset(sel.End, BiasRight)
		if !endOK {
			endIdx = c.tree.Count() - 1
		}
		for i := idx; i <= endIdx && i < c.tree.Count(); i++ {
			e := c.tree.At(i)
			clipped := clipSelectionToExcerpt(sel, c.tree.OffsetOf(i), e)
			if clipped.Len() <= 0 {
				continue
			}
			byBuffer[e.BufferID()] = append(byBuffer[e.BufferID()], clipped)
		}
	}

	for bufID, st := range c.bufferStates {
		ranges, ok := byBuffer[bufID]
		if !ok || len(ranges) == 0 {
			st.buf.RemoveActiveSelections(replicaID)
			continue
		}
		st.buf.SetActiveSelections(replicaID, coalesceRanges(ranges))
	}
}

func clipSelectionToExcerpt(sel buffer.Range, excerptCompositeStart int, e Excerpt) buffer.Range {
	localStart := sel.Start - excerptCompositeStart
	localEnd := sel.End - excerptCompositeStart
	bufStart := e.clipAnchor(e.startOffset() + localStart)
	bufEnd := e.clipAnchor(e.startOffset() + localEnd)
	if bufStart > bufEnd {
		bufStart, bufEnd = bufEnd, bufStart
	}
	return buffer.Range{Start: bufStart, End: bufEnd}
}

func coalesceRanges(ranges []buffer.Range) []buffer.Range {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	out := ranges[:0:0]
	for _, r := range ranges {
		if len(out) > 0 && r.Start <= out[len(out)-1].End {
			if r.End > out[len(out)-1].End {
				out[len(out)-1].End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// RemoveActiveSelections clears replicaID's selections from every
// tracked buffer.
func (c *Composition) RemoveActiveSelections(replicaID buffer.ReplicaID) {
	for _, st := range c.bufferStates {
		st.buf.RemoveActiveSelections(replicaID)
	}
}

// Format fans out to every tracked buffer's async format, awaiting them
// sequentially and failing fast on the first error (spec §5).
func (c *Composition) Format(ctx context.Context) error {
	for _, st := range c.bufferStates {
		if err := <-st.buf.Format(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Save is Format's mirror image for persistence.
func (c *Composition) Save(ctx context.Context) error {
	for _, st := range c.bufferStates {
		if err := <-st.buf.Save(ctx); err != nil {
			return err
		}
		c.notifyHost(st.buf.ID(), host.EventSaved)
	}
	return nil
}
