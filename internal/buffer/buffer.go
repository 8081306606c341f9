package buffer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var logger = commonlog.GetLoggerf("multibuffer.buffer")

// Buffer is a minimal single-document text engine: the opaque "Buffer"
// collaborator the composition in internal/multibuffer indexes (spec §1,
// §6). It owns its content, an append-only edit log (used to resolve
// anchors and report edits-since-version), generation counters, local
// transaction history, and an optional tree-sitter parse.
//
// Buffer is safe for concurrent access: the composition's single-threaded
// cooperative model (spec §5) means there is normally no contention, but
// Host-delivered buffer events and composition reads can still interleave
// within one goroutine's call stack during sync.
type Buffer struct {
	mu sync.RWMutex

	id        ID
	replicaID ReplicaID
	language  Language
	file      *File

	content []byte
	batches []batch // batches[v] transitions version v -> v+1

	parseVersion       int
	selectionsVersion  int
	diagnosticsVersion int
	isDirty            bool
	hasConflict        bool

	tree *parsedTree

	diagnostics []Diagnostic
	selections  map[ReplicaID][]Range

	history *localHistory

	languageServer *LanguageServerInfo
}

// New constructs an empty buffer. NewWithContent is the common entry
// point; New exists for callers that build content up via Edit.
func New(id ID, replicaID ReplicaID, lang Language) *Buffer {
	return NewWithContent(id, replicaID, lang, nil)
}

// NewWithContent constructs a buffer already containing content, at
// version 0.
func NewWithContent(id ID, replicaID ReplicaID, lang Language, content []byte) *Buffer {
	b := &Buffer{
		id:         id,
		replicaID: replicaID,
		language:   lang,
		content:    append([]byte(nil), content...),
		selections: make(map[ReplicaID][]Range),
		history:    newLocalHistory(),
	}
	if lang != LanguageNone {
		b.tree = newParsedTree(lang)
		if err := b.tree.reparse(b.content, nil); err != nil {
			logger.Warningf("initial parse failed for %s: %v", id, err)
		} else {
			b.parseVersion++
		}
	}
	return b
}

func (b *Buffer) ID() ID              { return b.id }
func (b *Buffer) ReplicaID() ReplicaID { return b.replicaID }

func (b *Buffer) SetFile(f *File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.file = f
}

func (b *Buffer) SetLanguageServer(info *LanguageServerInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.languageServer = info
}

func (b *Buffer) SetConflict(hasConflict bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hasConflict = hasConflict
}

// Len returns the buffer's current byte length.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.content)
}

// Version is the number of edit batches applied so far.
func (b *Buffer) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.batches)
}

func (b *Buffer) ParseCount() int              { b.mu.RLock(); defer b.mu.RUnlock(); return b.parseVersion }
func (b *Buffer) SelectionsUpdateCount() int   { b.mu.RLock(); defer b.mu.RUnlock(); return b.selectionsVersion }
func (b *Buffer) DiagnosticsUpdateCount() int  { b.mu.RLock(); defer b.mu.RUnlock(); return b.diagnosticsVersion }
func (b *Buffer) IsDirty() bool               { b.mu.RLock(); defer b.mu.RUnlock(); return b.isDirty }
func (b *Buffer) HasConflict() bool           { b.mu.RLock(); defer b.mu.RUnlock(); return b.hasConflict }
func (b *Buffer) Language() Language          { b.mu.RLock(); defer b.mu.RUnlock(); return b.language }

func (b *Buffer) File() *File {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.file
}

func (b *Buffer) LanguageServer() *LanguageServerInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.languageServer
}

// RowCount returns the number of rows (newline count + 1), or 0 for empty
// content, matching spec §6's row_count.
func (b *Buffer) RowCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.content) == 0 {
		return 0
	}
	return int(TextSummaryOf(b.content).Lines.Row) + 1
}

// LineLen returns the byte length of the given row, or 0 if out of range.
func (b *Buffer) LineLen(row uint32) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start, end, ok := b.rowBoundsLocked(row)
	if !ok {
		return 0
	}
	return end - start
}

// IndentColumnForLine returns the count of leading space/tab bytes on row.
func (b *Buffer) IndentColumnForLine(row uint32) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start, end, ok := b.rowBoundsLocked(row)
	if !ok {
		return 0
	}
	i := start
	for i < end && (b.content[i] == ' ' || b.content[i] == '\t') {
		i++
	}
	return i - start
}

func (b *Buffer) rowBoundsLocked(row uint32) (start, end int, ok bool) {
	line := uint32(0)
	start = 0
	for i, c := range b.content {
		if line == row && c == '\n' {
			return start, i, true
		}
		if c == '\n' {
			line++
			start = i + 1
		}
	}
	if line == row {
		return start, len(b.content), true
	}
	return 0, 0, false
}

// Snapshot captures the buffer's current state as an immutable,
// cheap-to-clone value (spec §3 BufferSnapshot).
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		id:                 b.id,
		replicaID:          b.replicaID,
		version:            len(b.batches),
		content:            b.content, // copy-on-write: Edit never mutates in place
		batches:            b.batches, // append-only: safe to alias
		language:           b.language,
		file:               b.file,
		isDirty:            b.isDirty,
		hasConflict:        b.hasConflict,
		parseVersion:       b.parseVersion,
		selectionsVersion:  b.selectionsVersion,
		diagnosticsVersion: b.diagnosticsVersion,
		diagnostics:        b.diagnostics,
		rootNode:           b.rootNodeLocked(),
	}
}

func (b *Buffer) rootNodeLocked() (rn rootNode) {
	node, ok := b.tree.rootNode()
	if !ok {
		return rootNode{}
	}
	return rootNode{node: node, content: b.content, valid: true}
}

// Edit applies newText to every range in ranges atomically as one version
// bump. ranges must be sorted ascending and non-overlapping (the
// composition's edit-routing guarantees this per spec §4.3.3); Edit
// panics otherwise; that is a programmer-misuse condition per spec §7.
func (b *Buffer) Edit(ranges []Range, newText string) []Delta {
	b.mu.Lock()
	defer b.mu.Unlock()
	texts := make([][]byte, len(ranges))
	for i := range ranges {
		texts[i] = []byte(newText)
	}
	return b.editLocked(ranges, texts, true)
}

// EditWithAutoindent behaves like Edit but additionally prefixes inserted
// lines with the indentation of the line the edit starts on, mirroring
// the teacher's autoindent toggle at the document-update layer.
func (b *Buffer) EditWithAutoindent(ranges []Range, newText string, autoindent bool) []Delta {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := []byte(newText)
	if autoindent && newText != "" {
		text = b.autoindentedLocked(ranges, newText)
	}
	texts := make([][]byte, len(ranges))
	for i := range ranges {
		texts[i] = text
	}
	return b.editLocked(ranges, texts, true)
}

func (b *Buffer) autoindentedLocked(ranges []Range, newText string) []byte {
	if len(ranges) == 0 {
		return []byte(newText)
	}
	indent := ""
	row := TextSummaryOf(b.content[:ranges[0].Start]).Lines.Row
	start, end, ok := b.rowBoundsLocked(row)
	if ok {
		i := start
		for i < end && (b.content[i] == ' ' || b.content[i] == '\t') {
			i++
		}
		indent = string(b.content[start:i])
	}
	if indent == "" {
		return []byte(newText)
	}
	lines := splitLines(newText)
	for i := 1; i < len(lines); i++ {
		lines[i] = indent + lines[i]
	}
	return []byte(joinLines(lines))
}

func splitLines(s string) []string {
	var out []string
	last := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[last:i])
			last = i + 1
		}
	}
	out = append(out, s[last:])
	return out
}

func joinLines(lines []string) string {
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}

func (b *Buffer) editLocked(ranges []Range, texts [][]byte, markDirty bool) []Delta {
	if !sort.SliceIsSorted(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start }) {
		panic("buffer: Edit requires ranges sorted ascending")
	}
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Start < ranges[i-1].End {
			panic("buffer: Edit requires non-overlapping ranges")
		}
	}
	for _, r := range ranges {
		if r.Start < 0 || r.End > len(b.content) || r.Start > r.End {
			panic(fmt.Sprintf("buffer: edit range %v out of bounds (len=%d)", r, len(b.content)))
		}
	}

	subEdits := make([]subEdit, len(ranges))
	var out []byte
	cursor := 0
	for i, r := range ranges {
		out = append(out, b.content[cursor:r.Start]...)
		out = append(out, texts[i]...)
		subEdits[i] = subEdit{
			start:   r.Start,
			oldEnd:  r.End,
			oldText: append([]byte(nil), b.content[r.Start:r.End]...),
			newText: append([]byte(nil), texts[i]...),
		}
		cursor = r.End
	}
	out = append(out, b.content[cursor:]...)

	batch := batch{fromVersion: len(b.batches), edits: subEdits}
	oldContent := b.content
	b.content = out
	b.batches = append(b.batches, batch)
	if markDirty {
		b.isDirty = true
	}

	if b.tree != nil && len(ranges) == 1 {
		inputEdit := inputEditFor(ranges[0], len(texts[0]), oldContent)
		if err := b.tree.reparse(b.content, &inputEdit); err != nil {
			logger.Warningf("%s: incremental reparse failed, dropping tree: %v", b.id, err)
			b.tree.close()
			b.tree = nil
		} else {
			b.parseVersion++
		}
	} else if b.tree != nil {
		if err := b.tree.reparse(b.content, nil); err != nil {
			logger.Warningf("%s: full reparse failed, dropping tree: %v", b.id, err)
			b.tree.close()
			b.tree = nil
		} else {
			b.parseVersion++
		}
	}

	b.history.recordEdit(len(b.batches) - 1)
	return batch.deltas()
}

// EditsSinceOneVersion returns the edits of the single version step
// version -> version+1. The composition's sync loop (spec §4.3.4) walks
// one version at a time so it never needs to compose edits across
// multiple versions itself (see DESIGN.md for why).
func (b *Buffer) EditsSinceOneVersion(version int) ([]Delta, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if version < 0 || version >= len(b.batches) {
		return nil, false
	}
	return b.batches[version].deltas(), true
}

// Close releases the buffer's parse tree.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tree.close()
}

// AvoidGroupingNextTransaction is exposed so History can tell a buffer that its next
// transaction must not merge with the previous one (spec §6).
func (b *Buffer) AvoidGroupingNextTransaction() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history.avoidGroupingNext = true
}

func (b *Buffer) StartTransactionAt(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history.start(now, len(b.batches))
}

// EndTransactionAt closes the current local transaction and returns its
// id, or ok=false if nothing was edited since it started.
func (b *Buffer) EndTransactionAt(now time.Time) (TransactionID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.end(now)
}

func (b *Buffer) UndoTransaction(id TransactionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyInverseLocked(id, true)
}

func (b *Buffer) RedoTransaction(id TransactionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyInverseLocked(id, false)
}
