package buffer

import sitter "github.com/alexaandru/go-tree-sitter-bare"

// rootNode pairs a parsed tree's root with the content it was parsed from,
// so callers of Snapshot.Outline/EnclosingBracketRanges never need to
// reach back into the live Buffer (which may have moved on to a later
// version by the time they read it).
type rootNode struct {
	node    sitter.Node
	content []byte
	valid   bool
}

// Snapshot is an immutable view of a Buffer at one version (spec §3
// BufferSnapshot): the composition indexes these, never the live Buffer,
// so a sync pass can diff "what the composition last saw" against "what a
// fresh Snapshot shows now".
type Snapshot struct {
	id        ID
	replicaID ReplicaID
	version   int
	content   []byte
	batches   []batch

	language Language
	file     *File

	isDirty     bool
	hasConflict bool

	parseVersion       int
	selectionsVersion  int
	diagnosticsVersion int
	diagnostics        []Diagnostic
	rootNode           rootNode
}

func (s Snapshot) ID() ID               { return s.id }
func (s Snapshot) ReplicaID() ReplicaID { return s.replicaID }
func (s Snapshot) Version() int         { return s.version }
func (s Snapshot) Language() Language   { return s.language }
func (s Snapshot) File() *File          { return s.file }
func (s Snapshot) IsDirty() bool        { return s.isDirty }
func (s Snapshot) HasConflict() bool    { return s.hasConflict }
func (s Snapshot) ParseCount() int      { return s.parseVersion }

// Len returns the byte length of the snapshotted content.
func (s Snapshot) Len() int { return len(s.content) }

// Bytes returns the full snapshotted content. Callers must not mutate the
// returned slice: Snapshot shares it with the Buffer's content at the time
// it was taken.
func (s Snapshot) Bytes() []byte { return s.content }

// Text returns rng's content as a string.
func (s Snapshot) Text(rng Range) string {
	if rng.Start < 0 || rng.End > len(s.content) || rng.Start > rng.End {
		return ""
	}
	return string(s.content[rng.Start:rng.End])
}

// RowAt returns the row containing byte offset, clamped into range.
func (s Snapshot) RowAt(offset int) uint32 {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.content) {
		offset = len(s.content)
	}
	return TextSummaryOf(s.content[:offset]).Lines.Row
}

// Summary returns the TextSummary of rng.
func (s Snapshot) Summary(rng Range) TextSummary {
	if rng.Start < 0 || rng.End > len(s.content) || rng.Start > rng.End {
		return TextSummary{}
	}
	return TextSummaryOf(s.content[rng.Start:rng.End])
}

// Resolve translates an anchor taken at some earlier version forward to
// this snapshot's version, walking one batch at a time (the same
// single-version-step discipline EditsSinceOneVersion uses). An anchor
// from a version beyond this snapshot's (should never happen: versions
// only move forward) resolves to its raw offset, clamped.
func (s Snapshot) Resolve(a TextAnchor) int {
	offset := a.Offset
	for v := a.Version; v < s.version && v < len(s.batches); v++ {
		offset = s.batches[v].translate(offset, a.Bias)
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.content) {
		offset = len(s.content)
	}
	return offset
}

// Outline lists the symbol-like nodes tree-sitter finds in this snapshot,
// or nil if the buffer has no language/parse tree.
func (s Snapshot) Outline() []OutlineEntry {
	if !s.rootNode.valid {
		return nil
	}
	return outlineOf(s.rootNode.node, s.rootNode.content)
}

// EnclosingBracketRanges returns the byte ranges of bracket pairs
// enclosing offset, innermost first (spec §6 enclosing_bracket_ranges).
func (s Snapshot) EnclosingBracketRanges(offset int) []Range {
	if !s.rootNode.valid {
		return nil
	}
	return enclosingBracketRanges(s.rootNode.node, s.rootNode.content, offset)
}

// RangeForSyntaxAncestor walks up levels syntax-tree ancestors from rng
// and returns the resulting range (spec §6 range_for_syntax_ancestor).
func (s Snapshot) RangeForSyntaxAncestor(rng Range, levels int) (Range, bool) {
	if !s.rootNode.valid {
		return Range{}, false
	}
	return rangeForSyntaxAncestor(s.rootNode.node, rng, levels)
}
