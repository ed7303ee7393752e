package sjpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryZero(t *testing.T) {
	assert.Equal(t, 0, category(0))
}

func TestCategoryBoundaries(t *testing.T) {
	cases := []struct {
		u   uint32
		cat int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{7, 3},
		{8, 4},
		{255, 8},
		{256, 9},
		{65535, 16},
	}
	for _, c := range cases {
		assert.Equal(t, c.cat, category(c.u), "category(%d)", c.u)
	}
}

func TestUnzigIsAPermutation(t *testing.T) {
	seen := make(map[int32]bool, blockSize)
	for _, v := range unzig {
		assert.False(t, seen[v], "duplicate natural index %d in unzig", v)
		seen[v] = true
		assert.GreaterOrEqual(t, v, int32(0))
		assert.Less(t, v, int32(blockSize))
	}
	assert.Len(t, seen, blockSize)
}

func TestUnzigFirstAndLastEntries(t *testing.T) {
	// Position 0 (DC) and position 63 (highest frequency) are fixed points
	// of the standard zig-zag permutation.
	assert.Equal(t, int32(0), unzig[0])
	assert.Equal(t, int32(63), unzig[63])
}
