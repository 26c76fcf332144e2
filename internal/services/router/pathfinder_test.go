package router

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPathsCompleteGraphOrder(t *testing.T) {
	snap, err := BuildSnapshot(gridMarkets(4, 3))
	require.NoError(t, err)

	paths := snap.findPaths(0, 3, 2)
	assert.Equal(t, [][]TokenID{
		{0, 1, 2, 3},
		{0, 1, 3},
		{0, 2, 1, 3},
		{0, 2, 3},
		{0, 3},
	}, paths)

	paths = snap.findPaths(0, 3, 1)
	assert.Equal(t, [][]TokenID{{0, 1, 3}, {0, 2, 3}, {0, 3}}, paths)

	paths = snap.findPaths(0, 3, 0)
	assert.Equal(t, [][]TokenID{{0, 3}}, paths)
}

func TestFindPathsSimpleAndBounded(t *testing.T) {
	snap, err := BuildSnapshot(gridMarkets(12, 3))
	require.NoError(t, err)

	for maxHops := 0; maxHops <= 4; maxHops++ {
		paths := snap.findPaths(0, 9, maxHops)
		for _, p := range paths {
			assert.True(t, isSimple(p), "path %v repeats a vertex", p)
			assert.LessOrEqual(t, len(p)-1, maxHops+1, "path %v exceeds budget %d", p, maxHops)
			assert.Equal(t, TokenID(0), p[0])
			assert.Equal(t, TokenID(9), p[len(p)-1])
			for i := 0; i+1 < len(p); i++ {
				assert.True(t, snap.hasEdge(p[i], p[i+1]))
			}
		}
	}
}

func TestFindPathsNotExtendedPastDestination(t *testing.T) {
	snap, err := BuildSnapshot(gridMarkets(6, 2))
	require.NoError(t, err)

	for _, p := range snap.findPaths(0, 2, 4) {
		for _, id := range p[:len(p)-1] {
			assert.NotEqual(t, TokenID(2), id)
		}
	}
}

func TestFindPathsDeterministic(t *testing.T) {
	snap, err := BuildSnapshot(gridMarkets(15, 3))
	require.NoError(t, err)

	first := snap.findPaths(0, 10, 4)
	second := snap.findPaths(0, 10, 4)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestFindPathsSourceIsDestination(t *testing.T) {
	snap, err := BuildSnapshot(gridMarkets(3, 2))
	require.NoError(t, err)
	assert.Equal(t, [][]TokenID{{1}}, snap.findPaths(1, 1, 2))
}

func TestFindPathsDisconnected(t *testing.T) {
	snap, err := BuildSnapshot(append(gridMarkets(3, 1), newMarket("0xisland", usdc, wbtc, "1", "1")))
	require.NoError(t, err)

	u, _ := snap.registry.GetID(usdc.Address)
	assert.Empty(t, snap.findPaths(0, u, 5))
	assert.Nil(t, snap.findPaths(0, u, -1))
	assert.Nil(t, snap.findPaths(0, TokenID(99), 2))
}

func BenchmarkFindPaths(b *testing.B) {
	snap, err := BuildSnapshot(gridMarkets(60, 4))
	require.NoError(b, err)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = snap.findPaths(0, 12, 3)
	}
}

func TestFindPathsClampsBudgetToTokenCount(t *testing.T) {
	snap, err := BuildSnapshot(gridMarkets(5, 4))
	require.NoError(t, err)

	want := snap.findPaths(0, 4, 3)
	assert.Equal(t, want, snap.findPaths(0, 4, math.MaxInt))
	assert.Equal(t, want, snap.findPaths(0, 4, 1<<40))
}
