package excerptid

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelsOrderRealIDs(t *testing.T) {
	a := Between(Min(), Max())
	require.True(t, Min().Less(a))
	require.True(t, a.Less(Max()))
	require.True(t, Min().Less(Max()))
}

func TestBetweenIsStrictlyOrdered(t *testing.T) {
	lo, hi := Min(), Max()
	ids := []ID{lo, hi}
	for i := 0; i < 200; i++ {
		j := rand.Intn(len(ids) - 1)
		mid := Between(ids[j], ids[j+1])
		require.True(t, ids[j].Less(mid))
		require.True(t, mid.Less(ids[j+1]))
		ids = append(ids, ID{})
		copy(ids[j+2:], ids[j+1:])
		ids[j+1] = mid
	}
	for i := 1; i < len(ids); i++ {
		require.True(t, ids[i-1].Less(ids[i]), "ids must remain strictly increasing at index %d", i)
	}
}

func TestBetweenPanicsOnMisorderedArgs(t *testing.T) {
	a := Between(Min(), Max())
	require.Panics(t, func() { Between(a, a) })
	require.Panics(t, func() { Between(Max(), Min()) })
}

func TestSequentialInsertionStaysOrdered(t *testing.T) {
	// Simulates repeatedly pushing after the last id, as push() does.
	ids := []ID{}
	prev := Min()
	for i := 0; i < 50; i++ {
		next := Between(prev, Max())
		ids = append(ids, next)
		prev = next
	}
	require.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i].Less(ids[j]) }))
}

func TestEqualAndCompare(t *testing.T) {
	a := Between(Min(), Max())
	require.True(t, a.Equal(a))
	require.Equal(t, 0, Compare(Min(), Min()))
	require.Equal(t, 0, Compare(Max(), Max()))
	require.Equal(t, -1, Compare(Min(), a))
	require.Equal(t, 1, Compare(Max(), a))
}
