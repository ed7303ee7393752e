// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

import "math"

// kdQLimit is the convergence threshold on successive quality-scale steps,
// per SPEC_FULL.md 4.6.
const kdQLimit = 20.0

// TargetMode selects what the dichotomy controller searches for.
type TargetMode int

const (
	// TargetNone disables dichotomy search; the encoder runs a single pass
	// at the configured quality.
	TargetNone TargetMode = iota
	// TargetSize searches for a global quality scale producing an output
	// close to a requested byte size.
	TargetSize
	// TargetPSNR searches for a global quality scale producing an output
	// close to a requested PSNR.
	TargetPSNR
)

// dichotomyState is the convergence loop of SPEC_FULL.md 4.6: it tracks a
// global quality scale q (units of "quality x10", centered near 500) and
// converges it toward a requested size or PSNR by successive secant-method
// updates.
type dichotomyState struct {
	mode   TargetMode
	target float64

	q, lastQ     float64
	dq           float64
	isFirst      bool
	value        float64
	lastValue    float64
	doSizeSearch bool
}

// newDichotomyState initializes the controller per SPEC_FULL.md 4.6's
// distinct heuristics for size search (q=500, dq=130) versus PSNR search
// (q = 500*11/(1+|target-31|)).
func newDichotomyState(mode TargetMode, target float64) *dichotomyState {
	s := &dichotomyState{mode: mode, target: target, isFirst: true}
	switch mode {
	case TargetSize:
		s.doSizeSearch = true
		s.q = 500
		s.dq = 130
	case TargetPSNR:
		s.q = 500 * 11 / (1 + math.Abs(target-31))
	default:
		s.q = 500
	}
	s.lastQ = s.q
	return s
}

// quality returns the current quality scale as a 0..100 quality value for
// feeding into QuantMatrix, per the "quality x10, centered near 500"
// convention (500 maps to quality 50).
func (s *dichotomyState) quality() int {
	q := int(s.q / 10)
	if q < 0 {
		q = 0
	}
	if q > 100 {
		q = 100
	}
	return q
}

// update feeds the result of a completed pass (measured size in bytes, or
// PSNR in dB, matching s.mode) into the controller and returns whether the
// search has converged.
func (s *dichotomyState) update(result float64) (converged bool) {
	value := result

	if s.isFirst {
		s.isFirst = false
		if s.doSizeSearch {
			if value < s.target {
				s.dq = -s.dq
			}
		} else {
			s.dq = s.dq * (value - s.target)
		}
	} else {
		if math.Abs(value-s.lastValue) > 0.02*value {
			s.dq = ((s.target - value) / (s.lastValue - value)) * (s.lastQ - s.q)
		} else {
			s.dq = 0
		}
	}

	if s.target < value {
		s.dq *= 0.9
	}
	if math.Abs(s.target-value) < 0.05*value {
		s.dq *= 0.7
	}

	if s.dq > 800 {
		s.dq = 800
	} else if s.dq < -800 {
		s.dq = -800
	}

	s.lastValue = value
	s.lastQ = s.q
	s.q += s.dq
	if s.q < 0 {
		s.q = 0
	} else if s.q > 2000 {
		s.q = 2000
	}

	return math.Abs(s.q-s.lastQ) < kdQLimit
}

// psnrFromSqErr computes PSNR against the original pre-DCT coefficients
// (natural-order fDCT output, scaled by 16) rather than reconstructed
// pixels, per SPEC_FULL.md 4.6's design note: sumSqErr is the accumulated
// squared error over every subband of every block between the original
// coefficients (divided by 16) and their quantized-then-dequantized values,
// and numCoeffs is the
// total number of coefficients (64 per block) it was summed over.
func psnrFromSqErr(sumSqErr float64, numCoeffs int) float64 {
	if numCoeffs == 0 {
		return 0
	}
	mse := sumSqErr / float64(numCoeffs)
	if mse <= 0 {
		return 99.0
	}
	const peak = 255.0
	return 10 * math.Log10(peak*peak/mse)
}
