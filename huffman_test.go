package sjpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOptimalTableSymbolCount(t *testing.T) {
	freq := make([]uint32, numACSymbols)
	freq[0] = 100
	freq[5] = 50
	freq[200] = 1
	freq[255] = 1

	table := buildOptimalTable(freq)

	var total int
	for _, b := range table.bits {
		total += int(b)
	}

	var nonZero int
	for _, f := range freq {
		if f > 0 {
			nonZero++
		}
	}
	assert.Equal(t, nonZero, total, "bits[] must account for exactly the symbols with nonzero frequency")
	assert.Equal(t, nonZero, len(table.syms))
}

func TestBuildOptimalTableSatisfiesKraft(t *testing.T) {
	freq := make([]uint32, numACSymbols)
	for i := range freq {
		freq[i] = uint32(i + 1)
	}
	table := buildOptimalTable(freq)
	assert.GreaterOrEqual(t, krafSlack(&table.bits), int64(0))
}

func TestBuildOptimalTableMaxLength16(t *testing.T) {
	// A sharply skewed distribution (many rare symbols, one dominant one)
	// stresses the length-limiting rebalance.
	freq := make([]uint32, numACSymbols)
	for i := range freq {
		freq[i] = 1
	}
	freq[0] = 1000000
	table := buildOptimalTable(freq)

	for _, s := range table.syms {
		length := int(table.codes[s] & 0xff)
		assert.LessOrEqual(t, length, 16, "no code may exceed the 16-bit JPEG length limit")
	}
}

func TestBuildOptimalTableSymbolsAscendingWithinLength(t *testing.T) {
	freq := make([]uint32, numACSymbols)
	freq[3] = 10
	freq[1] = 10
	freq[9] = 10
	freq[40] = 1

	table := buildOptimalTable(freq)

	idx := 0
	for _, n := range table.bits {
		group := table.syms[idx : idx+int(n)]
		for k := 1; k < len(group); k++ {
			assert.Less(t, group[k-1], group[k], "symbols of equal code length must ascend")
		}
		idx += int(n)
	}
}

func TestAssignCodesProducesValidLengths(t *testing.T) {
	freq := make([]uint32, numDCSymbols)
	for i := range freq {
		freq[i] = uint32(numDCSymbols - i)
	}
	table := buildOptimalTable(freq)

	for _, s := range table.syms {
		packed := table.codes[s]
		length := int(packed & 0xff)
		assert.GreaterOrEqual(t, length, 1)
		assert.LessOrEqual(t, length, 16)
	}
}

func TestACFrequencyCounterAddBlock(t *testing.T) {
	var c acFrequencyCounter
	levels := []runLevel{
		{run: 0, level: 0x13}, // category 3
		{run: 2, level: 0x22}, // category 2
	}
	c.addBlock(levels, 5) // last < 63, so an EOB is also counted

	assert.Equal(t, uint32(1), c.freq[0x03])
	assert.Equal(t, uint32(1), c.freq[uint32(2)<<4|0x02])
	assert.Equal(t, uint32(1), c.freq[acEOBSymbol])
}

func TestACFrequencyCounterNoEOBWhenLastIsFinalPosition(t *testing.T) {
	var c acFrequencyCounter
	c.addBlock([]runLevel{{run: 0, level: 0x11}}, blockSize-1)
	assert.Zero(t, c.freq[acEOBSymbol])
}

func TestACFrequencyCounterLongRunEscapes(t *testing.T) {
	var c acFrequencyCounter
	c.addBlock([]runLevel{{run: 20, level: 0x11}}, 21)
	assert.Equal(t, uint32(1), c.freq[acEscapeSymbol], "a run of 20 needs one 16-run escape before the 4-run remainder")
	assert.Equal(t, uint32(1), c.freq[uint32(4)<<4|0x01])
}

func TestDCFrequencyCounterAdd(t *testing.T) {
	var c dcFrequencyCounter
	code := generateDCDiffCode(7)
	c.add(code)
	require.Less(t, int(code&0x0f), numDCSymbols)
	assert.Equal(t, uint32(1), c.freq[code&0x0f])
}
