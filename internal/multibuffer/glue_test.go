package multibuffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinyvision/multibuffer/internal/buffer"
)

func TestCoalesceRanges(t *testing.T) {
	in := []buffer.Range{
		{Start: 10, End: 15},
		{Start: 0, End: 5},
		{Start: 4, End: 12},
		{Start: 20, End: 22},
	}
	got := coalesceRanges(in)
	require.Equal(t, []buffer.Range{
		{Start: 0, End: 15},
		{Start: 20, End: 22},
	}, got)
}

// TestTextAnchorForPosition is a thin resolve over a singleton
// composition: the composite offset maps back to the one buffer and a
// text anchor resolving to the same offset.
func TestTextAnchorForPosition(t *testing.T) {
	buf := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("hello"))
	c := Singleton(buf)

	bufID, anchor, ok := c.TextAnchorForPosition(2)
	require.True(t, ok)
	require.Equal(t, buffer.ID("b1"), bufID)
	require.Equal(t, 2, buf.Snapshot().Resolve(anchor))
}

// TestSetActiveSelectionsClipsToExcerpt covers spec §4.6's selection
// fan-out: a composite selection is clipped into the owning excerpt's
// buffer coordinates, and a buffer with no incoming selection in a
// later call has its previous one cleared.
func TestSetActiveSelectionsClipsToExcerpt(t *testing.T) {
	buf1 := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("0123456789"))
	buf2 := buffer.NewWithContent("b2", 1, buffer.LanguageNone, []byte("ABCDEFGHIJ"))
	c := New(buffer.ReplicaID(1))

	_, err := c.PushExcerpt(buf1, buffer.Range{Start: 2, End: 6}) // "2345"
	require.NoError(t, err)
	_, err = c.PushExcerpt(buf2, buffer.Range{Start: 3, End: 7}) // "DEFG"
	require.NoError(t, err)

	require.Equal(t, "2345\nDEFG", c.Snapshot().Text())

	replica := buffer.ReplicaID(7)

	// Composite [1,3) is entirely inside excerpt1's text ("23" of "2345"),
	// which lives at buf1 offsets [2,6): local 1..3 -> buf1 3..5.
	c.SetActiveSelections(replica, []buffer.Range{{Start: 1, End: 3}})

	sel1 := buf1.RemoteSelectionsInRange(buffer.Range{Start: 0, End: buf1.Len()})
	require.Equal(t, []buffer.Range{{Start: 3, End: 5}}, sel1[replica])

	sel2 := buf2.RemoteSelectionsInRange(buffer.Range{Start: 0, End: buf2.Len()})
	require.NotContains(t, sel2, replica)

	// Composite [6,8) is entirely inside excerpt2's text: excerpt2 starts
	// at composite offset 5, so local 1..3 of "DEFG" -> buf2 4..6 (buf2's
	// excerpt starts at offset 3). This call carries no range for buf1,
	// so buf1's previous selection is cleared.
	c.SetActiveSelections(replica, []buffer.Range{{Start: 6, End: 8}})

	sel2 = buf2.RemoteSelectionsInRange(buffer.Range{Start: 0, End: buf2.Len()})
	require.Equal(t, []buffer.Range{{Start: 4, End: 6}}, sel2[replica])

	sel1 = buf1.RemoteSelectionsInRange(buffer.Range{Start: 0, End: buf1.Len()})
	require.NotContains(t, sel1, replica)
}
