package sjpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogramAddAndPopulation(t *testing.T) {
	var h histogram
	var b block
	b[5] = 40
	h.add(&b)
	h.add(&b)

	assert.Equal(t, uint64(2), h.population(5))
	assert.Equal(t, uint64(2), h.population(0), "every position gets a bin entry, even for a zero coefficient")
}

func TestHistogramLastOccupiedBinEmpty(t *testing.T) {
	var h histogram
	assert.Equal(t, 0, h.lastOccupiedBin(10))
}

func TestHistogramLastOccupiedBinIsOneBased(t *testing.T) {
	var h histogram
	h.counts[2][0] = 1000
	assert.Equal(t, 1, h.lastOccupiedBin(2))
}

func TestHistogramBinSaturatesAtMaxHisto(t *testing.T) {
	var h histogram
	var b block
	b[0] = 30000 // far beyond maxHisto*4
	h.add(&b)
	assert.Equal(t, maxHisto+1, h.lastOccupiedBin(0))
}

func TestHistogramNegativeCoefficientsTakeAbsoluteValue(t *testing.T) {
	var h1, h2 histogram
	var bPos, bNeg block
	bPos[2] = 40
	bNeg[2] = -40
	h1.add(&bPos)
	h2.add(&bNeg)
	assert.Equal(t, h1.lastOccupiedBin(2), h2.lastOccupiedBin(2))
}
