package multibuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shinyvision/multibuffer/internal/buffer"
)

// TestHistoryGroupingAcrossBuffers is S5's core sequence: two transactions
// spanning both buffers group within group_interval, a third stays
// separate, and undo/redo walk the merged and separate entries correctly.
// The scenario's further step of an external buffer-level undo bypassing
// the composition is a resilience elaboration on invariant 6, not itself
// part of it, and is left untested here since nothing in this package
// exposes a buffer's local transaction id back to a composition caller.
func TestHistoryGroupingAcrossBuffers(t *testing.T) {
	buf1 := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("1234"))
	buf2 := buffer.NewWithContent("b2", 1, buffer.LanguageNone, []byte("5678"))
	c := New(buffer.ReplicaID(1))

	_, err := c.PushExcerpt(buf1, buffer.Range{Start: 0, End: 4})
	require.NoError(t, err)
	_, err = c.PushExcerpt(buf2, buffer.Range{Start: 0, End: 4})
	require.NoError(t, err)

	t0 := time.Unix(1000, 0)
	c.StartTransactionAt(t0)
	buf1.Edit([]buffer.Range{{Start: 0, End: 0}}, "A")
	buf2.Edit([]buffer.Range{{Start: 0, End: 0}}, "A")
	buf1.Edit([]buffer.Range{{Start: 1, End: 1}}, "B")
	buf2.Edit([]buffer.Range{{Start: 1, End: 1}}, "B")
	id1, ok := c.EndTransactionAt(t0)
	require.True(t, ok)
	require.Equal(t, "AB1234\nAB5678", c.Snapshot().Text())

	t1 := t0.Add(2 * defaultGroupInterval)
	c.StartTransactionAt(t1)
	buf1.Edit([]buffer.Range{{Start: 2, End: 2}}, "C")
	id2, ok := c.EndTransactionAt(t1)
	require.True(t, ok)
	require.NotEqual(t, id1, id2, "transactions beyond group_interval stay separate")
	require.Equal(t, "ABC1234\nAB5678", c.Snapshot().Text())

	_, ok = c.Undo()
	require.True(t, ok)
	require.Equal(t, "AB1234\nAB5678", c.Snapshot().Text())

	_, ok = c.Undo()
	require.True(t, ok)
	require.Equal(t, "1234\n5678", c.Snapshot().Text())

	_, ok = c.Redo()
	require.True(t, ok)
	require.Equal(t, "AB1234\nAB5678", c.Snapshot().Text())

	_, ok = c.Redo()
	require.True(t, ok)
	require.Equal(t, "ABC1234\nAB5678", c.Snapshot().Text())
}

// TestHistoryGroupingWithinInterval is invariant 6's merge side: two
// transactions close enough in time collapse into a single undo step
// whose undo reverts both.
func TestHistoryGroupingWithinInterval(t *testing.T) {
	buf1 := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("xy"))
	c := New(buffer.ReplicaID(1))
	_, err := c.PushExcerpt(buf1, buffer.Range{Start: 0, End: 2})
	require.NoError(t, err)

	t0 := time.Unix(2000, 0)
	c.StartTransactionAt(t0)
	buf1.Edit([]buffer.Range{{Start: 0, End: 0}}, "A")
	id1, _ := c.EndTransactionAt(t0)

	t1 := t0.Add(defaultGroupInterval / 2)
	c.StartTransactionAt(t1)
	buf1.Edit([]buffer.Range{{Start: 1, End: 1}}, "B")
	id2, ok := c.EndTransactionAt(t1)
	require.True(t, ok)
	require.Equal(t, id1, id2, "merged within group_interval")
	require.Equal(t, "ABxy", c.Snapshot().Text())

	_, ok = c.Undo()
	require.True(t, ok)
	require.Equal(t, "xy", c.Snapshot().Text(), "undo of a merged entry reverts both edits")
}
