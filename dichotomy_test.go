package sjpeg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPsnrFromSqErrZeroErrorIsHigh(t *testing.T) {
	p := psnrFromSqErr(0, 64)
	assert.Equal(t, 99.0, p)
}

func TestPsnrFromSqErrZeroCoeffs(t *testing.T) {
	assert.Equal(t, 0.0, psnrFromSqErr(100, 0))
}

func TestPsnrFromSqErrDecreasesWithError(t *testing.T) {
	small := psnrFromSqErr(10, 64)
	large := psnrFromSqErr(1000, 64)
	assert.Greater(t, small, large, "more accumulated error must yield lower PSNR")
}

func TestNewDichotomyStateSizeSearchDefaults(t *testing.T) {
	s := newDichotomyState(TargetSize, 5000)
	assert.Equal(t, 500.0, s.q)
	assert.Equal(t, 130.0, s.dq)
	assert.True(t, s.doSizeSearch)
}

func TestNewDichotomyStatePSNRSearchDefaults(t *testing.T) {
	s := newDichotomyState(TargetPSNR, 31)
	assert.Equal(t, 500.0*11/(1+math.Abs(31-31)), s.q)
	assert.False(t, s.doSizeSearch)
}

func TestDichotomyStateQualityClampedTo0And100(t *testing.T) {
	s := newDichotomyState(TargetSize, 1000)
	s.q = -50
	assert.Equal(t, 0, s.quality())
	s.q = 5000
	assert.Equal(t, 100, s.quality())
}

func TestDichotomyConverges(t *testing.T) {
	// A size search whose measurements approach the target converges once
	// two successive sizes differ by less than 2% (dq collapses to 0): here
	// on the second update (10050 then 10025).
	s := newDichotomyState(TargetSize, 10000)
	converged := false
	for i := 0; i < 20; i++ {
		// Pretend every pass produces a size that slowly approaches target.
		measured := 10000.0 + 50.0/float64(i+1)
		if s.update(measured) {
			converged = true
			break
		}
	}
	assert.True(t, converged, "dichotomy must converge within a bounded number of iterations for a well-behaved size sequence")
}
