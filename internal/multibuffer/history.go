package multibuffer

import (
	"time"

	"github.com/shinyvision/multibuffer/internal/buffer"
)

// TransactionID identifies one composition-level history entry (spec §3
// Transaction).
type TransactionID int64

// bufferTxn is one (buffer, local transaction) pair recorded by a
// composition Transaction.
type bufferTxn struct {
	bufferID buffer.ID
	localID  buffer.TransactionID
}

// transaction bundles the buffer transactions a single start/end pair
// produced, plus the timestamps History's grouping logic needs.
type transaction struct {
	id           TransactionID
	buffers      []bufferTxn
	firstEditAt  time.Time
	lastEditAt   time.Time
}

// History is the composition's undo/redo stack (spec §3 History, §4.5):
// a depth counter so nested start/end pairs collapse to one transaction,
// a monotonic id counter, and a grouping interval that merges temporally
// adjacent transactions into one undo step.
type History struct {
	groupInterval time.Duration

	depth   int
	nextID  TransactionID
	current *transaction

	undoStack []*transaction
	redoStack []*transaction
}

// defaultGroupInterval is spec §6's configured default.
const defaultGroupInterval = 300 * time.Millisecond

func newHistory() *History {
	return &History{groupInterval: defaultGroupInterval, nextID: 1}
}

// StartTransaction increments depth; on 0->1 it opens a fresh transaction
// (spec §4.5 start_transaction).
func (h *History) StartTransaction(now time.Time) {
	h.depth++
	if h.depth == 1 {
		h.current = &transaction{id: h.nextID, firstEditAt: now}
		h.nextID++
	}
}

// Depth reports the current transaction nesting depth, letting callers
// enforce spec §4.3.1's precondition that excerpt-list mutations
// (InsertExcerptAfter, RemoveExcerpts) require depth 0: those edits are
// not history-tracked, so allowing them mid-transaction would silently
// drop them from undo/redo.
func (h *History) Depth() int { return h.depth }

// recordBufferTxn attaches one buffer's local transaction id to the
// currently-open composition transaction.
func (h *History) recordBufferTxn(bufferID buffer.ID, localID buffer.TransactionID, now time.Time) {
	if h.current == nil {
		return
	}
	h.current.buffers = append(h.current.buffers, bufferTxn{bufferID: bufferID, localID: localID})
	h.current.lastEditAt = now
}

// EndTransaction decrements depth; on 1->0 it finalizes the open
// transaction, dropping it if empty (spec §4.5, §7 no-op transactions)
// and otherwise grouping it with the undo stack's top entry.
func (h *History) EndTransaction(now time.Time) (TransactionID, bool) {
	if h.depth == 0 {
		return 0, false
	}
	h.depth--
	if h.depth > 0 {
		return 0, false
	}
	t := h.current
	h.current = nil
	if t == nil || len(t.buffers) == 0 {
		return 0, false
	}
	if t.lastEditAt.IsZero() {
		t.lastEditAt = now
	}
	h.redoStack = nil
	h.undoStack = append(h.undoStack, t)
	return h.group(), true
}

// group walks the undo stack from the top, merging entries while
// first_edit_at(current) - last_edit_at(predecessor) <= group_interval
// (spec §4.5). Merging concatenates buffer-transaction sets and inherits
// the later last_edit_at. Returns the resulting top id.
func (h *History) group() TransactionID {
	for len(h.undoStack) >= 2 {
		top := h.undoStack[len(h.undoStack)-1]
		prev := h.undoStack[len(h.undoStack)-2]
		if top.firstEditAt.Sub(prev.lastEditAt) > h.groupInterval {
			break
		}
		prev.buffers = unionBufferTxns(prev.buffers, top.buffers)
		prev.lastEditAt = top.lastEditAt
		h.undoStack = h.undoStack[:len(h.undoStack)-1]
	}
	return h.undoStack[len(h.undoStack)-1].id
}

// Undo pops one transaction from the undo stack and applies
// buf.UndoTransaction to each of its buffer transactions via apply.
// Entries where no buffer reports success are discarded (already undone
// externally) and the next one is tried (spec §4.5). Returns
// (id, false) when the stack is exhausted.
func (h *History) Undo(apply func(buffer.ID, buffer.TransactionID) bool) (TransactionID, bool) {
	for len(h.undoStack) > 0 {
		t := h.undoStack[len(h.undoStack)-1]
		h.undoStack = h.undoStack[:len(h.undoStack)-1]
		if applyAny(t, apply) {
			h.redoStack = append(h.redoStack, t)
			return t.id, true
		}
	}
	return 0, false
}

// Redo is Undo's mirror image.
func (h *History) Redo(apply func(buffer.ID, buffer.TransactionID) bool) (TransactionID, bool) {
	for len(h.redoStack) > 0 {
		t := h.redoStack[len(h.redoStack)-1]
		h.redoStack = h.redoStack[:len(h.redoStack)-1]
		if applyAny(t, apply) {
			h.undoStack = append(h.undoStack, t)
			return t.id, true
		}
	}
	return 0, false
}

// unionBufferTxns concatenates two buffer-transaction sets, dropping any
// (bufferID, localID) pair already present in a. A buffer's own grouping
// can reopen the same local transaction across two composition-level
// transactions that are themselves later merged here; without this the
// merged entry would apply that local transaction's undo/redo twice.
func unionBufferTxns(a, b []bufferTxn) []bufferTxn {
	seen := make(map[bufferTxn]bool, len(a)+len(b))
	out := make([]bufferTxn, 0, len(a)+len(b))
	for _, bt := range a {
		if !seen[bt] {
			seen[bt] = true
			out = append(out, bt)
		}
	}
	for _, bt := range b {
		if !seen[bt] {
			seen[bt] = true
			out = append(out, bt)
		}
	}
	return out
}

func applyAny(t *transaction, apply func(buffer.ID, buffer.TransactionID) bool) bool {
	ok := false
	for _, bt := range t.buffers {
		if apply(bt.bufferID, bt.localID) {
			ok = true
		}
	}
	return ok
}
