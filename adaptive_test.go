package sjpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOmittedPosition(t *testing.T) {
	assert.True(t, isOmittedPosition(0))
	assert.True(t, isOmittedPosition(1))
	assert.True(t, isOmittedPosition(8))
	assert.False(t, isOmittedPosition(2))
	assert.False(t, isOmittedPosition(63))
}

func TestAnalyseHistoEmptyHistogramDriftsToMinimumDelta(t *testing.T) {
	// With every bucket empty, distortion and rate are both flat (zero) for
	// every candidate delta, so the cost plateau ties and the ascending-delta
	// tie-break lands on qdeltaMin: the matrix is NOT left unchanged, since
	// enc.cc's AnalyseHisto carries no "nothing to adapt against" special
	// case for this input either.
	var h histogram
	matrix := uniformMatrix(16)

	out := analyseHisto(&h, matrix, uniformMatrix(1), qdeltaMax)
	assert.Equal(t, byte(16+qdeltaMin), out[2])
}

func TestAnalyseHistoSingleBinPopulatedShiftsMatrix(t *testing.T) {
	// bin 0 carrying the full population (last_occupied_bin == 1) clears the
	// density floor, and its one nonzero-rate sample (at delta == qdeltaMin)
	// is expensive enough under the fallback lambda to push the cost-plateau
	// tie-break one delta higher than the all-empty case above.
	var h histogram
	h.counts[2][0] = 1000
	matrix := uniformMatrix(16)

	out := analyseHisto(&h, matrix, uniformMatrix(1), qdeltaMax)
	assert.Equal(t, byte(5), out[2])
}

func TestAnalyseHistoSkipsOmittedPositions(t *testing.T) {
	var h histogram
	// Populate the histogram heavily at an omitted position (natural index 1)
	// so that, if the omission check were broken, the matrix would change.
	var b block
	b[1] = 500
	h.add(&b)

	matrix := uniformMatrix(16)
	out := analyseHisto(&h, matrix, matrix, qdeltaMax)
	assert.Equal(t, matrix[1], out[1], "an omitted position must never be adapted")
}

func TestAnalyseHistoRespectsMinQuantFloor(t *testing.T) {
	var h histogram
	for i := 0; i < 200; i++ {
		var b block
		b[2] = int16(300 + i)
		h.add(&b)
	}
	matrix := uniformMatrix(16)
	floor := uniformMatrix(20) // floor above the starting matrix value

	out := analyseHisto(&h, matrix, floor, qdeltaMax)
	assert.GreaterOrEqual(t, out[2], floor[2])
}

func TestAnalyseHistoStaysWithinByteRange(t *testing.T) {
	var h histogram
	for i := 0; i < 500; i++ {
		var b block
		b[3] = int16(2000 + i)
		h.add(&b)
	}
	matrix := uniformMatrix(250)
	out := analyseHisto(&h, matrix, uniformMatrix(1), qdeltaMax)
	assert.LessOrEqual(t, int(out[3]), 255)
	assert.GreaterOrEqual(t, int(out[3]), 1)
}
