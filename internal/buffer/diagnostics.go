package buffer

import (
	"context"
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Severity mirrors the handful of levels LSP-shaped diagnostics carry.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic is one buffer-side diagnostic, anchored so it survives edits
// the same way an excerpt boundary does.
type Diagnostic struct {
	GroupID  int
	Severity Severity
	Message  string
	Range    AnchorRange
}

// PushDiagnostics replaces the buffer's diagnostics and bumps its
// diagnostics generation, as if a language server had just responded.
func (b *Buffer) PushDiagnostics(diags []Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diagnostics = diags
	b.diagnosticsVersion++
}

// DiagnosticsInRange returns diagnostics whose resolved range intersects
// rng, given the version rng's offsets were computed in.
func (s Snapshot) DiagnosticsInRange(rng Range) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.diagnostics {
		start, end := s.Resolve(d.Range.Start), s.Resolve(d.Range.End)
		if start < rng.End && end > rng.Start {
			out = append(out, d)
		}
	}
	return out
}

// DiagnosticGroup returns every diagnostic sharing groupID, ordered by
// resolved start offset (spec §6 diagnostic_group).
func (s Snapshot) DiagnosticGroup(groupID int) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.diagnostics {
		if d.GroupID == groupID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.Resolve(out[i].Range.Start) < s.Resolve(out[j].Range.Start)
	})
	return out
}

// SetActiveSelections records replicaID's current selection ranges, for
// remote-cursor rendering (spec §4.6).
func (b *Buffer) SetActiveSelections(replicaID ReplicaID, ranges []Range) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selections[replicaID] = ranges
	b.selectionsVersion++
}

func (b *Buffer) RemoveActiveSelections(replicaID ReplicaID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.selections, replicaID)
	b.selectionsVersion++
}

// RemoteSelectionsInRange returns every other replica's selections that
// intersect rng, keyed by replica.
func (b *Buffer) RemoteSelectionsInRange(rng Range) map[ReplicaID][]Range {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[ReplicaID][]Range)
	for replica, ranges := range b.selections {
		var kept []Range
		for _, r := range ranges {
			if r.Start < rng.End && r.End > rng.Start {
				kept = append(kept, r)
			}
		}
		if len(kept) > 0 {
			out[replica] = kept
		}
	}
	return out
}

// Completion is a single completion-list entry, ahead of the composition's
// anchor rewrite (spec §4.6 completions).
type Completion struct {
	Label              string
	InsertText         string
	OldRange           Range
	AdditionalEditRefs []int
}

// Completions returns nil, nil for every offset, with or without a
// language server configured: no completion candidates are produced.
// Absence of completions is not a buffer-side failure (spec §7).
func (b *Buffer) Completions(offset int) ([]Completion, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.languageServer == nil {
		return nil, nil
	}
	return nil, nil
}

// IsCompletionTrigger is a pure predicate (spec §4.6): true if text is a
// single alphanumeric/underscore rune, or one of the buffer's
// language-server trigger strings.
func (b *Buffer) IsCompletionTrigger(text string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if isWordRune(text) {
		return true
	}
	if b.languageServer == nil {
		return false
	}
	for _, trigger := range b.languageServer.TriggerCharacters {
		if trigger == text {
			return true
		}
	}
	return false
}

func isWordRune(text string) bool {
	if len(text) == 0 {
		return false
	}
	r := []rune(text)
	if len(r) != 1 {
		return false
	}
	c := r[0]
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// ApplyAdditionalEditsForCompletion is the hook for a completion's
// trailing edits (e.g. auto-import insertions). It applies no edits and
// returns nil; the buffer is left unchanged.
func (b *Buffer) ApplyAdditionalEditsForCompletion(c Completion) []Delta {
	return nil
}

// Format runs asynchronously (spec §5: format/save are the only operations
// that suspend the caller). The returned channel delivers exactly one
// error: ctx.Err() if ctx is already done, otherwise nil. The buffer's
// content is not changed.
func (b *Buffer) Format(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
			done <- ctx.Err()
		default:
			done <- nil
		}
	}()
	return done
}

// Save asynchronously clears isDirty and delivers nil, or delivers
// ctx.Err() without clearing it if ctx is already done. No file is
// written.
func (b *Buffer) Save(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
			done <- ctx.Err()
			return
		default:
		}
		b.mu.Lock()
		b.isDirty = false
		b.mu.Unlock()
		done <- nil
	}()
	return done
}

// AnchorBefore and AnchorAfter build anchors that stick to the byte
// immediately before/after offset across future edits (spec §6
// anchor_before/after).
func (b *Buffer) AnchorBefore(offset int) TextAnchor { return b.AnchorAt(offset, BiasLeft) }
func (b *Buffer) AnchorAfter(offset int) TextAnchor  { return b.AnchorAt(offset, BiasRight) }

func (b *Buffer) AnchorAt(offset int, bias Bias) TextAnchor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return TextAnchor{Version: len(b.batches), Offset: clampOffset(offset, len(b.content)), Bias: bias}
}

func clampOffset(offset, length int) int {
	if offset < 0 {
		return 0
	}
	if offset > length {
		return length
	}
	return offset
}

// ClipOffset clamps offset into [0, len(content)].
func (b *Buffer) ClipOffset(offset int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return clampOffset(offset, len(b.content))
}

// OffsetToPoint converts a byte offset to a (row, column) Point.
func (b *Buffer) OffsetToPoint(offset int) Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	offset = clampOffset(offset, len(b.content))
	return TextSummaryOf(b.content[:offset]).Lines
}

// OffsetToPointUTF16 converts a byte offset to a UTF-16 Point.
func (b *Buffer) OffsetToPointUTF16(offset int) PointUTF16 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	offset = clampOffset(offset, len(b.content))
	return TextSummaryOf(b.content[:offset]).LinesUTF16
}

// PointToOffset converts a (row, column) Point back to a byte offset.
func (b *Buffer) PointToOffset(p Point) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start, end, ok := b.rowBoundsLocked(p.Row)
	if !ok {
		return len(b.content)
	}
	offset := start + int(p.Column)
	if offset > end {
		offset = end
	}
	return offset
}

// PointUTF16ToOffset converts a UTF-16 Point back to a byte offset.
func (b *Buffer) PointUTF16ToOffset(p PointUTF16) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start, end, ok := b.rowBoundsLocked(p.Row)
	if !ok {
		return len(b.content)
	}
	col := uint32(0)
	i := start
	for i < end && col < p.Column {
		r, size := utf8.DecodeRune(b.content[i:end])
		if n := utf16.RuneLen(r); n > 0 {
			col += uint32(n)
		} else {
			col++
		}
		i += size
	}
	return i
}

// TextSummaryForRange returns the TextSummary of rng.
func (b *Buffer) TextSummaryForRange(rng Range) TextSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if rng.Start < 0 || rng.End > len(b.content) || rng.Start > rng.End {
		return TextSummary{}
	}
	return TextSummaryOf(b.content[rng.Start:rng.End])
}

// BytesInRange returns a copy of the content in rng.
func (b *Buffer) BytesInRange(rng Range) []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if rng.Start < 0 || rng.End > len(b.content) || rng.Start > rng.End {
		return nil
	}
	return append([]byte(nil), b.content[rng.Start:rng.End]...)
}

// ReversedBytesInRange returns the bytes of rng in reverse order, the
// primitive a composition's ReversedChars iterator is built from.
func (b *Buffer) ReversedBytesInRange(rng Range) []byte {
	fwd := b.BytesInRange(rng)
	for i, j := 0, len(fwd)-1; i < j; i, j = i+1, j-1 {
		fwd[i], fwd[j] = fwd[j], fwd[i]
	}
	return fwd
}

// EditsSinceInRange restricts EditsSinceOneVersion's deltas to those
// intersecting rng.
func (b *Buffer) EditsSinceInRange(version int, rng Range) ([]Delta, bool) {
	deltas, ok := b.EditsSinceOneVersion(version)
	if !ok {
		return nil, false
	}
	var out []Delta
	for _, d := range deltas {
		if d.NewRange.Start < rng.End && d.NewRange.End > rng.Start {
			out = append(out, d)
		}
	}
	return out, true
}

// inputEditFor builds the tree-sitter incremental-reparse descriptor for a
// single-range edit, mirroring how the teacher's LSP bridge translates an
// textDocument/didChange range into a sitter.InputEdit.
func inputEditFor(r Range, newLen int, oldContent []byte) sitter.InputEdit {
	return sitter.InputEdit{
		StartIndex:  uint32(r.Start),
		OldEndIndex: uint32(r.End),
		NewEndIndex: uint32(r.Start + newLen),
		StartPoint:  pointAt(oldContent, r.Start),
		OldEndPoint: pointAt(oldContent, r.End),
		NewEndPoint: pointAt(oldContent, r.Start), // recomputed precisely after reparse by the tree itself
	}
}

func pointAt(content []byte, offset int) sitter.Point {
	if offset > len(content) {
		offset = len(content)
	}
	p := TextSummaryOf(content[:offset]).Lines
	return sitter.Point{Row: uint(p.Row), Column: uint(p.Column)}
}
