package multibuffer

import (
	"sort"

	"github.com/shinyvision/multibuffer/internal/buffer"
	"github.com/shinyvision/multibuffer/internal/excerptid"
)

// Bias controls which side of a seek boundary a cursor lands on,
// mirroring buffer.Bias at the composite level (spec §4.1).
type Bias int

const (
	BiasLeft Bias = iota
	BiasRight
)

// Tree is the order-statistic index over excerpts (spec §4.1). The
// reference design calls for a balanced aggregating B-tree so seek/slice
// run in O(log n) against an arbitrarily large excerpt list; this
// implementation instead keeps excerpts in a flat slice with a
// precomputed prefix-sum array, giving O(log n) seeks via binary search
// and O(n) rebuilds on mutation. See DESIGN.md for why: the testable
// properties in spec §8 are behavioral, not asymptotic, and compositions
// in practice hold a few hundred excerpts at most (one per open file
// region), where a slice rebuild is cheaper in both code size and
// constant factor than maintaining balanced-tree invariants under
// concurrent-free, single-threaded mutation.
type Tree struct {
	excerpts []Excerpt
	prefix   []ExcerptSummary // prefix[i] = summary of excerpts[:i]; len(prefix) == len(excerpts)+1
	cumBytes []int            // cumBytes[i] = prefix[i].Text.Bytes, cached for binary search
	cumRows  []int            // cumRows[i] = prefix[i].Text.Lines.Row
}

func newTree(excerpts []Excerpt) Tree {
	t := Tree{excerpts: excerpts}
	t.rebuildPrefix()
	return t
}

func (t *Tree) rebuildPrefix() {
	n := len(t.excerpts)
	t.prefix = make([]ExcerptSummary, n+1)
	t.cumBytes = make([]int, n+1)
	t.cumRows = make([]int, n+1)
	for i, e := range t.excerpts {
		t.prefix[i+1] = addSummary(t.prefix[i], excerptSummary(e))
		t.cumBytes[i+1] = t.prefix[i+1].Text.Bytes
		t.cumRows[i+1] = int(t.prefix[i+1].Text.Lines.Row)
	}
}

// Summary is the O(1) root summary (spec §4.1 summary()).
func (t Tree) Summary() ExcerptSummary {
	if len(t.prefix) == 0 {
		return ExcerptSummary{}
	}
	return t.prefix[len(t.prefix)-1]
}

// Len is the composite byte length.
func (t Tree) Len() int { return t.Summary().Text.Bytes }

// Count is the number of excerpts.
func (t Tree) Count() int { return len(t.excerpts) }

// Excerpts returns the excerpts in tree order. Callers must not mutate
// the returned slice.
func (t Tree) Excerpts() []Excerpt { return t.excerpts }

// At returns the i'th excerpt.
func (t Tree) At(i int) Excerpt { return t.excerpts[i] }

// OffsetOf returns the composite byte offset at which excerpt i begins.
func (t Tree) OffsetOf(i int) int { return t.cumBytes[i] }

// slice returns the first n excerpts as a fresh Tree (spec §4.1 slice).
func (t Tree) slice(n int) Tree { return newTree(append([]Excerpt(nil), t.excerpts[:n]...)) }

// suffix returns the excerpts from index n onward as a fresh Tree (spec
// §4.1 suffix).
func (t Tree) suffix(n int) Tree { return newTree(append([]Excerpt(nil), t.excerpts[n:]...)) }

// push appends one excerpt (spec §4.1 push). It panics if e's id does not
// sort after the tree's current last id, preserving the ordering
// invariant at the moment of insertion rather than at read time.
func (t Tree) push(e Excerpt) Tree {
	s := t.Summary()
	if s.HasLastID && !s.LastID.Less(e.ID()) {
		panic("multibuffer: push requires strictly increasing excerpt ids")
	}
	out := append(append([]Excerpt(nil), t.excerpts...), e)
	return newTree(out)
}

// pushTree appends every excerpt of other (spec §4.1 push_tree).
func (t Tree) pushTree(other Tree) Tree {
	out := append(append([]Excerpt(nil), t.excerpts...), other.excerpts...)
	return newTree(out)
}

// updateLast replaces the last excerpt via fn (spec §4.1 update_last),
// used to flip has_trailing_newline on the old tail when a new excerpt is
// inserted after it.
func (t Tree) updateLast(fn func(Excerpt) Excerpt) Tree {
	if len(t.excerpts) == 0 {
		return t
	}
	out := append([]Excerpt(nil), t.excerpts...)
	out[len(out)-1] = fn(out[len(out)-1])
	return newTree(out)
}

// indexOfID returns the index of the excerpt with the given id, or
// (-1, false) if absent. Tree order is id order, so this is a binary
// search.
func (t Tree) indexOfID(id excerptid.ID) (int, bool) {
	i := sort.Search(len(t.excerpts), func(i int) bool { return !t.excerpts[i].ID().Less(id) })
	if i < len(t.excerpts) && t.excerpts[i].ID().Equal(id) {
		return i, true
	}
	return i, false
}

// seekByOffset positions a cursor at the excerpt containing the composite
// byte offset, honoring bias at excerpt boundaries (spec §4.1 tie-break
// rule): Right advances to the excerpt starting at the boundary, Left
// remains at the previous excerpt (overshoot equal to its full length,
// i.e. its end, instead of the next excerpt's start). Returns ok=false if the tree is empty or offset lands past
// the end under Right bias (the empty tail).
func (t Tree) seekByOffset(offset int, bias Bias) (index int, overshoot int, ok bool) {
	n := len(t.excerpts)
	if n == 0 {
		return 0, 0, false
	}
	if offset <= 0 {
		return 0, 0, true
	}
	total := t.cumBytes[n]
	if offset >= total {
		if bias == BiasLeft {
			return n - 1, t.cumBytes[n] - t.cumBytes[n-1], true
		}
		return 0, 0, false
	}
	// First index i (0-based into excerpts) such that cumBytes[i+1] > offset:
	// offset falls within excerpts[i] = [cumBytes[i], cumBytes[i+1]).
	i := sort.Search(n, func(i int) bool { return t.cumBytes[i+1] > offset })
	if offset == t.cumBytes[i] && bias == BiasLeft && i > 0 {
		return i - 1, t.cumBytes[i] - t.cumBytes[i-1], true
	}
	return i, offset - t.cumBytes[i], true
}

// seekByRow positions a cursor at the excerpt spanning composite row r
// (used by the row iterator and buffer_rows projections). Unlike byte
// offsets, row indices run [0, total] inclusive: cumRows[n] counts row
// breaks, one fewer than the number of rows, so row == total lands on the
// last excerpt's last row rather than past the end.
func (t Tree) seekByRow(row int, bias Bias) (index int, overshootRows int, ok bool) {
	n := len(t.excerpts)
	if n == 0 {
		return 0, 0, false
	}
	if row <= 0 {
		return 0, 0, true
	}
	total := t.cumRows[n]
	if row > total {
		return 0, 0, false
	}
	if row == total {
		return n - 1, total - t.cumRows[n-1], true
	}
	i := sort.Search(n, func(i int) bool { return t.cumRows[i+1] > row })
	if row == t.cumRows[i] && bias == BiasLeft && i > 0 {
		return i - 1, t.cumRows[i] - t.cumRows[i-1], true
	}
	return i, row - t.cumRows[i], true
}

// seekByUTF16Point positions a cursor at the excerpt spanning composite
// UTF-16 point p's row (spec §4.1 lists point_utf16 alongside offset and
// row as a required seek dimension). A row break is the same newline
// byte whether the column on either side of it is later counted in
// bytes or UTF-16 code units, so the row-indexed cumRows prefix array
// seekByRow already maintains is exactly the index this dimension
// needs too; only the in-excerpt column translation
// (OffsetToPointUTF16/PointUTF16ToOffset, in iterators.go) differs
// between the two point spaces.
func (t Tree) seekByUTF16Point(p buffer.PointUTF16, bias Bias) (index int, overshootRows int, ok bool) {
	return t.seekByRow(int(p.Row), bias)
}

// seekByID positions a cursor at the excerpt whose id is <= target (spec
// §4.3.5 summary_for_anchor: "seek tree by (last-id ≤ anchor.excerpt_id),
// Left"). Returns ok=false only for an empty tree.
func (t Tree) seekByID(id excerptid.ID, bias Bias) (index int, ok bool) {
	n := len(t.excerpts)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return !t.excerpts[i].ID().Less(id) })
	if i < n && t.excerpts[i].ID().Equal(id) {
		return i, true
	}
	// i is the first excerpt with id > target; the "<=" match is i-1.
	if bias == BiasLeft {
		if i == 0 {
			return 0, true
		}
		return i - 1, true
	}
	if i >= n {
		return n - 1, true
	}
	return i, true
}
