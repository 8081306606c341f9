package buffer

import "time"

// TransactionID identifies one local transaction (spec §4.5 Transaction):
// a run of edits grouped together for a single undo/redo step.
type TransactionID int

// groupInterval mirrors History's default grouping window (spec §9):
// edits that land within this long of each other merge into one
// transaction instead of starting a new one.
const groupInterval = 300 * time.Millisecond

type localTransaction struct {
	id             TransactionID
	startedAt      time.Time
	lastEditAt     time.Time
	currentBatches []int // indices into Buffer.batches, in application order
}

// localHistory tracks one buffer's own undo/redo stack, independent of the
// cross-buffer grouping a composition-level History layers on top (spec
// §4.5). It never discards entries: like the composition History, undo
// depth is unbounded here.
type localHistory struct {
	nextID            TransactionID
	open              *localTransaction
	avoidGroupingNext bool
	undoStack         []*localTransaction
	redoStack         []*localTransaction
	byID              map[TransactionID]*localTransaction
}

func newLocalHistory() *localHistory {
	return &localHistory{nextID: 1, byID: make(map[TransactionID]*localTransaction)}
}

// start opens a transaction at atBatch (the batch index about to be
// recorded), or reopens the most recently closed one if it ended within
// groupInterval and grouping hasn't been suppressed. It does nothing while
// a transaction is already open.
func (h *localHistory) start(now time.Time, atBatch int) {
	if h.open != nil {
		return
	}
	if !h.avoidGroupingNext && len(h.undoStack) > 0 {
		last := h.undoStack[len(h.undoStack)-1]
		if now.Sub(last.lastEditAt) <= groupInterval {
			h.undoStack = h.undoStack[:len(h.undoStack)-1]
			h.open = last
			h.redoStack = nil
			return
		}
	}
	h.avoidGroupingNext = false
	t := &localTransaction{id: h.nextID, startedAt: now}
	h.nextID++
	h.open = t
	h.byID[t.id] = t
	h.redoStack = nil
}

// recordEdit appends a just-applied batch to the open transaction, opening
// an ungrouped one first if none is open (an edit outside of
// Start/EndTransaction still needs to be undoable).
func (h *localHistory) recordEdit(batchIdx int) {
	if h.open == nil {
		t := &localTransaction{id: h.nextID}
		h.nextID++
		h.open = t
		h.byID[t.id] = t
	}
	h.open.currentBatches = append(h.open.currentBatches, batchIdx)
}

// end closes the open transaction, returning its id, or ok=false if it
// recorded no edits (spec §7: no-op transactions are dropped silently).
func (h *localHistory) end(now time.Time) (TransactionID, bool) {
	t := h.open
	h.open = nil
	if t == nil || len(t.currentBatches) == 0 {
		if t != nil {
			delete(h.byID, t.id)
		}
		return 0, false
	}
	t.lastEditAt = now
	h.undoStack = append(h.undoStack, t)
	return t.id, true
}

// applyInverseLocked replays transaction id's batches, in reverse to undo
// it (isUndo=true) or in application order to redo it (isUndo=false), via
// the buffer's own edit
// path so anchors translate through the inverse exactly as they would any
// other edit.
func (b *Buffer) applyInverseLocked(id TransactionID, isUndo bool) bool {
	t, ok := b.history.byID[id]
	if !ok || len(t.currentBatches) == 0 {
		return false
	}

	n := len(t.currentBatches)
	for k := 0; k < n; k++ {
		i := n - 1 - k
		if !isUndo {
			i = k
		}
		batchIdx := t.currentBatches[i]
		if batchIdx >= len(b.batches) {
			continue
		}
		bt := b.batches[batchIdx]
		ranges := make([]Range, len(bt.edits))
		texts := make([][]byte, len(bt.edits))
		delta := 0
		for j, e := range bt.edits {
			newStart := e.start + delta
			if isUndo {
				ranges[j] = Range{newStart, newStart + e.newLen()}
				texts[j] = e.oldText
			} else {
				ranges[j] = Range{e.start, e.oldEnd}
				texts[j] = e.newText
			}
			delta += e.newLen() - e.oldLen()
		}
		b.editLocked(ranges, texts, true)
	}
	return true
}
