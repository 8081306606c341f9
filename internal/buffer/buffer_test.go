package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEditAppliesAndBumpsVersion(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("abcd"))
	require.Equal(t, 0, b.Version())

	b.Edit([]Range{{Start: 1, End: 3}}, "XY")
	require.Equal(t, 1, b.Version())
	require.Equal(t, "aXYd", b.Snapshot().Text(Range{Start: 0, End: b.Len()}))
}

func TestEditMultipleRangesOneVersion(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("abcdef"))
	b.Edit([]Range{{Start: 0, End: 1}, {Start: 3, End: 4}}, "_")
	require.Equal(t, 1, b.Version())
	require.Equal(t, "_bc_ef", b.Snapshot().Text(Range{Start: 0, End: b.Len()}))
}

func TestEditPanicsOnUnsortedRanges(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("abcdef"))
	require.Panics(t, func() {
		b.Edit([]Range{{Start: 3, End: 4}, {Start: 0, End: 1}}, "_")
	})
}

func TestEditPanicsOnOverlappingRanges(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("abcdef"))
	require.Panics(t, func() {
		b.Edit([]Range{{Start: 0, End: 3}, {Start: 2, End: 4}}, "_")
	})
}

// TestAnchorResolvesAcrossInsert is S1's anchor-stability invariant at the
// buffer layer: anchors created before an edit resolve to the offset
// shifted by the net delta at positions <= the anchor, with bias deciding
// which side of an insertion at the exact anchor point they land on.
func TestAnchorResolvesAcrossInsert(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("abcd"))

	before0 := b.AnchorBefore(0)
	after0 := b.AnchorAfter(0)
	before4 := b.AnchorBefore(4)
	after4 := b.AnchorAfter(4)

	b.Edit([]Range{{Start: 0, End: 0}}, "X")
	b.Edit([]Range{{Start: 5, End: 5}}, "Y")

	snap := b.Snapshot()
	require.Equal(t, "XabcdY", snap.Text(Range{Start: 0, End: snap.Len()}))
	require.Equal(t, 0, snap.Resolve(before0))
	require.Equal(t, 1, snap.Resolve(after0))
	require.Equal(t, 5, snap.Resolve(before4))
	require.Equal(t, 6, snap.Resolve(after4))
}

func TestEditsSinceOneVersion(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("abcdef"))
	b.Edit([]Range{{Start: 1, End: 3}}, "XY")
	deltas, ok := b.EditsSinceOneVersion(0)
	require.True(t, ok)
	require.Len(t, deltas, 1)
	require.Equal(t, Range{Start: 1, End: 3}, deltas[0].OldRange)
	require.Equal(t, Range{Start: 1, End: 3}, deltas[0].NewRange)
}

func TestUndoRedoTransaction(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("1234"))
	now := time.Unix(0, 0)

	b.StartTransactionAt(now)
	b.Edit([]Range{{Start: 0, End: 0}}, "A")
	id, ok := b.EndTransactionAt(now)
	require.True(t, ok)
	require.Equal(t, "A1234", b.Snapshot().Text(Range{Start: 0, End: b.Len()}))

	require.True(t, b.UndoTransaction(id))
	require.Equal(t, "1234", b.Snapshot().Text(Range{Start: 0, End: b.Len()}))

	require.True(t, b.RedoTransaction(id))
	require.Equal(t, "A1234", b.Snapshot().Text(Range{Start: 0, End: b.Len()}))
}

func TestTransactionGroupingWithinInterval(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("1234"))
	t0 := time.Unix(0, 0)

	b.StartTransactionAt(t0)
	b.Edit([]Range{{Start: 0, End: 0}}, "A")
	id1, ok := b.EndTransactionAt(t0)
	require.True(t, ok)

	t1 := t0.Add(groupInterval / 2)
	b.StartTransactionAt(t1)
	b.Edit([]Range{{Start: 1, End: 1}}, "B")
	id2, ok := b.EndTransactionAt(t1)
	require.True(t, ok)
	require.Equal(t, id1, id2, "transactions within group_interval merge into one entry")

	require.True(t, b.UndoTransaction(id2))
	require.Equal(t, "1234", b.Snapshot().Text(Range{Start: 0, End: b.Len()}), "undo of a merged entry reverts both edits")
}

func TestTransactionGroupingOutsideInterval(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("1234"))
	t0 := time.Unix(0, 0)

	b.StartTransactionAt(t0)
	b.Edit([]Range{{Start: 0, End: 0}}, "A")
	id1, _ := b.EndTransactionAt(t0)

	t1 := t0.Add(2 * groupInterval)
	b.StartTransactionAt(t1)
	b.Edit([]Range{{Start: 1, End: 1}}, "B")
	id2, _ := b.EndTransactionAt(t1)

	require.NotEqual(t, id1, id2, "transactions beyond group_interval stay separate entries")
}

func TestClipOffset(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("abcd"))
	require.Equal(t, 0, b.ClipOffset(-5))
	require.Equal(t, 4, b.ClipOffset(99))
	require.Equal(t, 2, b.ClipOffset(2))
}

func TestOffsetPointRoundTrip(t *testing.T) {
	b := NewWithContent("b1", 1, LanguageNone, []byte("ab\ncd\nef"))
	for _, offset := range []int{0, 1, 2, 3, 5, 6, 8} {
		p := b.OffsetToPoint(offset)
		require.Equal(t, offset, b.PointToOffset(p), "round-trip at offset %d", offset)
	}
}
