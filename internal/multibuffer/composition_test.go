package multibuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shinyvision/multibuffer/internal/buffer"
	"github.com/shinyvision/multibuffer/internal/excerptid"
)

// TestSingletonEditsPropagate is S1: singleton over "abcd", buffer edits
// insert "X" at 0 then "Y" at 5, anchors taken before the edits resolve
// against the post-edit snapshot.
func TestSingletonEditsPropagate(t *testing.T) {
	buf := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("abcd"))
	c := Singleton(buf)

	snap0 := c.Snapshot()
	before0 := snap0.AnchorAt(0, BiasLeft)
	after0 := snap0.AnchorAt(0, BiasRight)
	before4 := snap0.AnchorAt(4, BiasLeft)
	after4 := snap0.AnchorAt(4, BiasRight)

	buf.Edit([]buffer.Range{{Start: 0, End: 0}}, "X")
	buf.Edit([]buffer.Range{{Start: 5, End: 5}}, "Y")

	snap1 := c.Snapshot()
	require.Equal(t, "XabcdY", snap1.Text())
	require.Equal(t, 0, snap1.SummaryForAnchor(before0))
	require.Equal(t, 1, snap1.SummaryForAnchor(after0))
	require.Equal(t, 5, snap1.SummaryForAnchor(before4))
	require.Equal(t, 6, snap1.SummaryForAnchor(after4))
}

func sixLineBuffer(id buffer.ID, first rune) *buffer.Buffer {
	lines := make([]string, 6)
	for i := range lines {
		r := first + rune(i)
		line := ""
		for j := 0; j < 6; j++ {
			line += string(r)
		}
		lines[i] = line
	}
	content := lines[0]
	for _, l := range lines[1:] {
		content += "\n" + l
	}
	return buffer.NewWithContent(id, 1, buffer.LanguageNone, []byte(content))
}

// TestMultiExcerptCompositionText is S2: three excerpts across two
// six-line buffers compose into one document, with buffer_rows
// projecting each composite row back to its source.
func TestMultiExcerptCompositionText(t *testing.T) {
	buf1 := sixLineBuffer("b1", 'a') // rows: aaaaaa, bbbbbb, cccccc, dddddd, eeeeee, ffffff
	buf2 := sixLineBuffer("b2", 'g') // rows: gggggg, hhhhhh, iiiiii, jjjjjj, kkkkkk, llllll

	c := New(buffer.ReplicaID(1))

	// B1[(1,2)..(2,5)] -> bytes [9,19): "bbbb\nccccc"
	_, err := c.PushExcerpt(buf1, buffer.Range{Start: 9, End: 19})
	require.NoError(t, err)
	// B1[(3,3)..(4,4)] -> bytes [24,32): "ddd\neeee"
	_, err = c.PushExcerpt(buf1, buffer.Range{Start: 24, End: 32})
	require.NoError(t, err)
	// B2[(3,1)..(3,3)] -> bytes [22,24): "jj"
	_, err = c.PushExcerpt(buf2, buffer.Range{Start: 22, End: 24})
	require.NoError(t, err)

	snap := c.Snapshot()
	require.Equal(t, "bbbb\nccccc\nddd\neeee\njj", snap.Text())
	require.Equal(t, snap.Len(), len(snap.Text()))

	require.Equal(t, []uint32{1, 2, 3, 4, 3}, snap.BufferRows(0))
	require.Equal(t, []uint32{3}, snap.BufferRows(4))
	require.Nil(t, snap.BufferRows(5))
}

// TestEmptyCompositionBoundaries covers spec §8's boundary behaviors for
// an excerpt-less composition.
func TestEmptyCompositionBoundaries(t *testing.T) {
	c := New(buffer.ReplicaID(1))
	snap := c.Snapshot()
	require.Equal(t, "", snap.Text())
	require.Equal(t, 0, snap.Len())
	require.Equal(t, []uint32{0}, snap.BufferRows(0))
	require.Nil(t, snap.BufferRows(1))
}

// TestBufferStateRefcounting is invariant 7: the bufferStates map tracks
// exactly the buffer ids referenced by at least one excerpt.
func TestBufferStateRefcounting(t *testing.T) {
	buf1 := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("1234"))
	buf2 := buffer.NewWithContent("b2", 1, buffer.LanguageNone, []byte("5678"))
	c := New(buffer.ReplicaID(1))

	id1, err := c.PushExcerpt(buf1, buffer.Range{Start: 0, End: 4})
	require.NoError(t, err)
	_, err = c.PushExcerpt(buf2, buffer.Range{Start: 0, End: 4})
	require.NoError(t, err)

	require.Len(t, c.bufferStates, 2)
	require.Contains(t, c.bufferStates, buffer.ID("b1"))
	require.Contains(t, c.bufferStates, buffer.ID("b2"))

	require.NoError(t, c.RemoveExcerpts([]excerptid.ID{id1}))
	require.Len(t, c.bufferStates, 1)
	require.NotContains(t, c.bufferStates, buffer.ID("b1"))
}

// TestTrailingNewlineInvariant is invariant 8: exactly the last excerpt
// lacks a trailing newline, and removing it transfers the property back.
func TestTrailingNewlineInvariant(t *testing.T) {
	buf := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("abcdefgh"))
	c := New(buffer.ReplicaID(1))

	_, err := c.PushExcerpt(buf, buffer.Range{Start: 0, End: 2})
	require.NoError(t, err)
	id2, err := c.PushExcerpt(buf, buffer.Range{Start: 2, End: 4})
	require.NoError(t, err)

	excerpts := c.tree.Excerpts()
	require.Len(t, excerpts, 2)
	require.True(t, excerpts[0].HasTrailingNewline())
	require.False(t, excerpts[1].HasTrailingNewline())

	require.NoError(t, c.RemoveExcerpts([]excerptid.ID{id2}))
	excerpts = c.tree.Excerpts()
	require.Len(t, excerpts, 1)
	require.False(t, excerpts[0].HasTrailingNewline())
}

// TestSubscriptionReplay is invariant 5: replaying published deltas
// against the old text reconstructs the new text.
func TestSubscriptionReplay(t *testing.T) {
	buf := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("hello world"))
	c := New(buffer.ReplicaID(1))
	_, err := c.PushExcerpt(buf, buffer.Range{Start: 0, End: 11})
	require.NoError(t, err)

	sub := c.Subscribe()
	oldText := c.Snapshot().Text()

	buf.Edit([]buffer.Range{{Start: 6, End: 11}}, "there")
	newText := c.Snapshot().Text()

	deltas := sub.Consume()
	require.NotEmpty(t, deltas)

	got := oldText
	for _, d := range deltas {
		replacement := newText[d.NewRange.Start:d.NewRange.End]
		got = got[:d.OldRange.Start] + replacement + got[d.OldRange.End:]
	}
	require.Equal(t, newText, got)
}

// TestSyncTranslatesSingleVersionEdit is S3: starting from S2's
// composition, a single buffer1 edit batch (insert "\n" at (0,0) and
// replace (2,1)..(2,3) with "\n", both ranges expressed against the
// pre-edit buffer) reshapes the first excerpt without touching the
// others, and the published delta is the one underlying edit that
// actually intersects an excerpt's range, translated into composite
// coordinates rather than one coarse excerpt-wide delta.
func TestSyncTranslatesSingleVersionEdit(t *testing.T) {
	buf1 := sixLineBuffer("b1", 'a')
	buf2 := sixLineBuffer("b2", 'g')

	c := New(buffer.ReplicaID(1))
	_, err := c.PushExcerpt(buf1, buffer.Range{Start: 9, End: 19})
	require.NoError(t, err)
	_, err = c.PushExcerpt(buf1, buffer.Range{Start: 24, End: 32})
	require.NoError(t, err)
	_, err = c.PushExcerpt(buf2, buffer.Range{Start: 22, End: 24})
	require.NoError(t, err)

	require.Equal(t, "bbbb\nccccc\nddd\neeee\njj", c.Snapshot().Text())

	sub := c.Subscribe()

	// row0 col0 -> offset 0 (insert point); row2 col1..col3 -> offset
	// [15,17) ("cc" out of row2's "cccccc").
	buf1.Edit([]buffer.Range{{Start: 0, End: 0}, {Start: 15, End: 17}}, "\n")

	snap := c.Snapshot()
	require.Equal(t, "bbbb\nc\ncc\nddd\neeee\njj", snap.Text())

	deltas := sub.Consume()
	require.Equal(t, []Delta{
		{
			OldRange: buffer.Range{Start: 6, End: 8},
			NewRange: buffer.Range{Start: 6, End: 7},
		},
	}, deltas)
}

// TestExcerptListMutationPanicsDuringTransaction covers spec §4.3.1's
// "no transaction in progress" precondition on excerpt-list mutation
// (spec §7: a fatal programmer-misuse condition, not a returned error).
func TestExcerptListMutationPanicsDuringTransaction(t *testing.T) {
	buf := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("abcd"))
	c := New(buffer.ReplicaID(1))
	id, err := c.PushExcerpt(buf, buffer.Range{Start: 0, End: 4})
	require.NoError(t, err)

	c.StartTransactionAt(time.Now())
	require.Panics(t, func() { c.PushExcerpt(buf, buffer.Range{Start: 0, End: 4}) })
	require.Panics(t, func() { c.RemoveExcerpts([]excerptid.ID{id}) })
}

// TestEditRoutesWithinSingleExcerpt exercises the non-singleton path of
// Edit/routeEdits: a composite-coordinate range entirely inside one
// excerpt of a multi-excerpt composition is routed straight to that
// excerpt's buffer, leaving the other excerpt's anchors to shift with
// the edit rather than be touched directly.
func TestEditRoutesWithinSingleExcerpt(t *testing.T) {
	buf := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("0123456789"))
	c := New(buffer.ReplicaID(1))

	_, err := c.PushExcerpt(buf, buffer.Range{Start: 0, End: 4})
	require.NoError(t, err)
	_, err = c.PushExcerpt(buf, buffer.Range{Start: 6, End: 10})
	require.NoError(t, err)

	require.Equal(t, "0123\n6789", c.Snapshot().Text())

	deltas := c.Edit([]buffer.Range{{Start: 1, End: 3}}, "X")
	require.NotEmpty(t, deltas)

	require.Equal(t, "0X3\n6789", c.Snapshot().Text())
}
