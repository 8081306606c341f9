package multibuffer

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/shinyvision/multibuffer/internal/buffer"
)

// TestOffsetPointUTF16RoundTrip is spec §8 invariant 2's "analogous
// UTF-16 round-trip", hand-traced against a singleton buffer whose first
// row holds one astral-plane rune ("\U0001F600", 4 UTF-8 bytes but 2
// UTF-16 code units) so the UTF-16 column diverges from the byte column.
func TestOffsetPointUTF16RoundTrip(t *testing.T) {
	// Row 0: "h\U0001F600llo" (1+4+1+1+1 = 8 bytes, 1+2+1+1+1 = 6 UTF-16
	// units). Row 1: "world" (5 bytes, 5 UTF-16 units).
	buf := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("h\U0001F600llo\nworld"))
	c := Singleton(buf)
	snap := c.Snapshot()

	require.Equal(t, buffer.PointUTF16{Row: 0, Column: 0}, snap.OffsetToPointUTF16(0))
	require.Equal(t, buffer.PointUTF16{Row: 0, Column: 1}, snap.OffsetToPointUTF16(1))
	// Byte offset 5 is just past the emoji's 4 bytes (1+4): "h\U0001F600"
	// is 1 UTF-16 unit for 'h' plus 2 for the emoji.
	require.Equal(t, buffer.PointUTF16{Row: 0, Column: 3}, snap.OffsetToPointUTF16(5))
	// Byte offset 8 is the end of row 0's text, just before the '\n'.
	require.Equal(t, buffer.PointUTF16{Row: 0, Column: 6}, snap.OffsetToPointUTF16(8))
	// Byte offset 9 is just past the '\n': start of row 1.
	require.Equal(t, buffer.PointUTF16{Row: 1, Column: 0}, snap.OffsetToPointUTF16(9))
	require.Equal(t, buffer.PointUTF16{Row: 1, Column: 5}, snap.OffsetToPointUTF16(14))

	require.Equal(t, 5, snap.PointUTF16ToOffset(buffer.PointUTF16{Row: 0, Column: 3}))
	require.Equal(t, 9, snap.PointUTF16ToOffset(buffer.PointUTF16{Row: 1, Column: 0}))
	require.Equal(t, 14, snap.PointUTF16ToOffset(buffer.PointUTF16{Row: 1, Column: 5}))

	for _, offset := range []int{0, 1, 5, 8, 9, 14} {
		p := snap.OffsetToPointUTF16(offset)
		require.Equal(t, offset, snap.PointUTF16ToOffset(p), "round trip at offset %d", offset)
	}
}

// TestPointUTF16RoundTripAcrossExcerpts covers the same round trip over a
// composition with excerpts from two buffers, each containing an
// astral-plane rune, so the translation must cross an excerpt boundary
// (and its synthetic newline) while staying in UTF-16 code-unit space.
// Only offsets on a character boundary round-trip; offsets inside a
// multi-byte rune are skipped.
func TestPointUTF16RoundTripAcrossExcerpts(t *testing.T) {
	buf1 := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("ab\U0001F600c"))
	buf2 := buffer.NewWithContent("b2", 1, buffer.LanguageNone, []byte("\U0001F600xy"))

	c := New(buffer.ReplicaID(1))
	_, err := c.PushExcerpt(buf1, buffer.Range{Start: 0, End: buf1.Len()})
	require.NoError(t, err)
	_, err = c.PushExcerpt(buf2, buffer.Range{Start: 0, End: buf2.Len()})
	require.NoError(t, err)

	snap := c.Snapshot()
	text := snap.Text()
	for offset := 0; offset <= snap.Len(); offset++ {
		if offset < len(text) && !utf8.RuneStart(text[offset]) {
			continue
		}
		p := snap.OffsetToPointUTF16(offset)
		require.Equal(t, offset, snap.PointUTF16ToOffset(p), "round trip at offset %d", offset)
	}
}

// TestClipPointUTF16ClampsOutOfRange covers spec §4.4's clip_point_utf16:
// a row or column past the document's end clamps to the nearest valid
// position, the same as ClipOffset does for plain byte offsets.
func TestClipPointUTF16ClampsOutOfRange(t *testing.T) {
	buf := buffer.NewWithContent("b1", 1, buffer.LanguageNone, []byte("ab\U0001F600\ncd"))
	c := Singleton(buf)
	snap := c.Snapshot()

	end := snap.OffsetToPointUTF16(snap.Len())
	require.Equal(t, end, snap.ClipPointUTF16(buffer.PointUTF16{Row: 99, Column: 99}))

	rowEnd := snap.OffsetToPointUTF16(snap.PointUTF16ToOffset(buffer.PointUTF16{Row: 0, Column: 99}))
	require.Equal(t, rowEnd, snap.ClipPointUTF16(buffer.PointUTF16{Row: 0, Column: 99}))
}
