package multibuffer

import (
	"sort"
	"time"

	"github.com/shinyvision/multibuffer/internal/buffer"
)

// bufferOp is one per-buffer edit fanned out from a composite range (spec
// §4.3.3): insert=true carries the caller's new_text, insert=false is a
// pure deletion (the straddled-excerpt interior).
type bufferOp struct {
	buf    *buffer.Buffer
	rng    buffer.Range
	insert bool
}

// locateForEdit seeks the excerpt containing a composite offset, stepping
// back to the last excerpt's end when offset is past the end of the
// document (spec §4.3.3's "step back if past end" rule).
func (c *Composition) locateForEdit(offset int) (idx, overshoot int, ok bool) {
	idx, overshoot, ok = c.tree.seekByOffset(offset, BiasRight)
	if ok {
		return
	}
	n := c.tree.Count()
	if n == 0 {
		return 0, 0, false
	}
	return n - 1, c.tree.At(n - 1).compositeLen(), true
}

// Edit routes composite-coordinate ranges to their underlying buffers
// and applies new_text (spec §4.3.3).
func (c *Composition) Edit(ranges []buffer.Range, newText string) []Delta {
	return c.edit(ranges, newText, false)
}

// EditWithAutoindent is Edit with autoindent forwarded to each affected
// buffer's own autoindent behavior.
func (c *Composition) EditWithAutoindent(ranges []buffer.Range, newText string, autoindent bool) []Delta {
	return c.edit(ranges, newText, autoindent)
}

func (c *Composition) edit(ranges []buffer.Range, newText string, autoindent bool) []Delta {
	c.sync()

	if bufID, _, ok := c.Snapshot().AsSingleton(); ok {
		buf := c.bufferStates[bufID].buf
		if autoindent {
			buf.EditWithAutoindent(ranges, newText, true)
		} else {
			buf.Edit(ranges, newText)
		}
		return c.afterBufferEdits()
	}

	ops := c.routeEdits(ranges)
	byBuffer := make(map[buffer.ID][]bufferOp)
	order := []buffer.ID{}
	for _, op := range ops {
		if _, ok := byBuffer[op.buf.ID()]; !ok {
			order = append(order, op.buf.ID())
		}
		byBuffer[op.buf.ID()] = append(byBuffer[op.buf.ID()], op)
	}

	for _, bufID := range order {
		bufOps := byBuffer[bufID]
		buf := bufOps[0].buf
		sort.Slice(bufOps, func(i, j int) bool { return bufOps[i].rng.Start < bufOps[j].rng.Start })
		bufOps = coalesceBufferOps(bufOps)

		var insertAnchors []buffer.AnchorRange
		var insertRanges []buffer.Range
		for _, op := range bufOps {
			if op.insert {
				insertAnchors = append(insertAnchors, buffer.AnchorRange{
					Start: buf.AnchorBefore(op.rng.Start),
					End:   buf.AnchorBefore(op.rng.End),
				})
			}
		}

		var delRanges []buffer.Range
		for _, op := range bufOps {
			if !op.insert && op.rng.Len() > 0 {
				delRanges = append(delRanges, op.rng)
			}
		}
		if len(delRanges) > 0 {
			buf.Edit(delRanges, "")
		}

		snap := buf.Snapshot()
		for _, ar := range insertAnchors {
			insertRanges = append(insertRanges, buffer.Range{Start: snap.Resolve(ar.Start), End: snap.Resolve(ar.End)})
		}
		if len(insertRanges) > 0 {
			sort.Slice(insertRanges, func(i, j int) bool { return insertRanges[i].Start < insertRanges[j].Start })
			if autoindent {
				buf.EditWithAutoindent(insertRanges, newText, true)
			} else {
				buf.Edit(insertRanges, newText)
			}
		}
	}

	return c.afterBufferEdits()
}

// coalesceBufferOps merges overlapping or touching ops routed to the same
// buffer, taking the max end and OR-ing the insert flag (spec §4.3.3:
// sort by start, then coalesce). Two composite ranges from one Edit call
// that straddle a shared middle excerpt otherwise route duplicate,
// overlapping delete ops for that excerpt to the same buffer.Edit call,
// which panics on overlapping ranges.
func coalesceBufferOps(ops []bufferOp) []bufferOp {
	out := ops[:0:0]
	for _, op := range ops {
		if len(out) > 0 && op.rng.Start <= out[len(out)-1].rng.End {
			last := &out[len(out)-1]
			if op.rng.End > last.rng.End {
				last.rng.End = op.rng.End
			}
			last.insert = last.insert || op.insert
			continue
		}
		out = append(out, op)
	}
	return out
}

// routeEdits implements the per-range fan-out of spec §4.3.3.
func (c *Composition) routeEdits(ranges []buffer.Range) []bufferOp {
	var ops []bufferOp
	for _, rg := range ranges {
		sIdx, sOver, ok := c.locateForEdit(rg.Start)
		if !ok {
			continue
		}
		eIdx, eOver, ok := c.locateForEdit(rg.End)
		if !ok {
			continue
		}
		sExc := c.tree.At(sIdx)
		eExc := c.tree.At(eIdx)
		sBuf := sExc.clipAnchor(sExc.startOffset() + sOver)
		eBuf := eExc.clipAnchor(eExc.startOffset() + eOver)

		st := c.bufferStates[sExc.BufferID()]
		if sIdx == eIdx {
			ops = append(ops, bufferOp{buf: st.buf, rng: buffer.Range{Start: sBuf, End: eBuf}, insert: true})
			continue
		}
		ops = append(ops, bufferOp{buf: st.buf, rng: buffer.Range{Start: sBuf, End: sExc.endOffset()}, insert: true})
		for k := sIdx + 1; k < eIdx; k++ {
			m := c.tree.At(k)
			mst := c.bufferStates[m.BufferID()]
			ops = append(ops, bufferOp{buf: mst.buf, rng: buffer.Range{Start: m.startOffset(), End: m.endOffset()}, insert: false})
		}
		est := c.bufferStates[eExc.BufferID()]
		ops = append(ops, bufferOp{buf: est.buf, rng: buffer.Range{Start: eExc.startOffset(), End: eBuf}, insert: false})
	}
	return ops
}

// afterBufferEdits reconciles post-edit and returns whatever deltas that
// sync produced, i.e. the composite deltas caused by this Edit call.
func (c *Composition) afterBufferEdits() []Delta {
	before := len(c.topic.log)
	c.sync()
	return append([]Delta(nil), c.topic.log[before:]...)
}

// StartTransactionAt opens a transaction, forwarding to every tracked
// buffer (spec §4.5 start_transaction).
func (c *Composition) StartTransactionAt(now time.Time) {
	c.history.StartTransaction(now)
	for _, st := range c.bufferStates {
		st.buf.StartTransactionAt(now)
	}
}

// EndTransactionAt closes the transaction, collecting each buffer's
// local transaction id, and groups it per spec §4.5.
func (c *Composition) EndTransactionAt(now time.Time) (TransactionID, bool) {
	for _, st := range c.bufferStates {
		if id, ok := st.buf.EndTransactionAt(now); ok {
			c.history.recordBufferTxn(st.buf.ID(), id, now)
		}
	}
	return c.history.EndTransaction(now)
}

// Undo pops and applies the top undo-stack transaction (spec §4.5).
func (c *Composition) Undo() (TransactionID, bool) {
	id, ok := c.history.Undo(func(bufID buffer.ID, localID buffer.TransactionID) bool {
		st := c.bufferStates[bufID]
		if st == nil {
			return false
		}
		return st.buf.UndoTransaction(localID)
	})
	c.afterBufferEdits()
	return id, ok
}

// Redo is Undo's mirror image.
func (c *Composition) Redo() (TransactionID, bool) {
	id, ok := c.history.Redo(func(bufID buffer.ID, localID buffer.TransactionID) bool {
		st := c.bufferStates[bufID]
		if st == nil {
			return false
		}
		return st.buf.RedoTransaction(localID)
	})
	c.afterBufferEdits()
	return id, ok
}
