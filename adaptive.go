// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

import "math"

// Constants from SPEC_FULL.md 4.3.
const (
	qdeltaMin           = -12
	qdeltaMax           = 12
	hlambda             = 128
	kDensityThreshold   = 0.5
	kCorrelationThresh  = 0.5
	omittedChannelsMask = uint64(0x103) // natural indices 0, 1, 8
	gaussianSigma       = 3.0
)

func isOmittedPosition(i int) bool {
	return omittedChannelsMask&(uint64(1)<<uint(i)) != 0
}

// analyseHisto implements the adaptive quantization matrix analyzer of
// SPEC_FULL.md 4.3: for every non-omitted subband position it searches a
// delta in [qdeltaMin, qdeltaMaxCap] minimizing D(delta) + lambda*R(delta),
// where lambda is estimated once per position by Gaussian-weighted least
// squares over the (delta, D) and (delta, R) clouds.
//
// h holds the 64 per-subband histograms of one component (see histogram.go
// for why a single histogram value already represents "64 histograms").
// matrix is the current quantization matrix, minQuant a floor on the output,
// and qdeltaMaxCap the per-component search cap (12 for luma, 1 for chroma
// by default, per SPEC_FULL.md 6).
func analyseHisto(h *histogram, matrix, minQuant quantMatrix, qdeltaMaxCap int) quantMatrix {
	out := matrix
	for i := 0; i < blockSize; i++ {
		if isOmittedPosition(i) {
			continue
		}
		last := h.lastOccupiedBin(i)
		pop := h.population(i)
		if float64(pop) < kDensityThreshold*float64(last) {
			continue // under-populated
		}

		dq0 := float64(matrix[i])
		minQ := float64(minQuant[i])
		if minQ < 1 {
			minQ = 1
		}

		type sample struct{ x, d, r float64 }
		var samples []sample
		for delta := qdeltaMin; delta <= qdeltaMax; delta++ {
			dq := dq0 + float64(delta)
			if dq < minQ || dq > 255 {
				continue
			}
			idq := math.Ceil(65536.0 / dq)
			var d, r float64
			for b := 0; b <= maxHisto; b++ {
				cnt := h.counts[i][b]
				if cnt == 0 {
					continue
				}
				vb := float64(b<<hshift + hhalf)
				qb := math.Floor((vb*idq + 32768) / 65536)
				if qb != 0 {
					diff := vb - qb*dq
					d += float64(cnt) * diff * diff
					r += float64(cnt) * float64(category(uint32(qb)))
				} else {
					d += float64(cnt) * vb * vb
				}
			}
			samples = append(samples, sample{x: float64(delta), d: d, r: r})
		}
		if len(samples) == 0 {
			continue
		}

		// Gaussian-weighted least squares for lambda, sigma ~= 3.
		var sw, sx, sxx, sy1, sy2, sxy1, sxy2, syy1 float64
		for _, s := range samples {
			w := math.Exp(-(s.x * s.x) / (2 * gaussianSigma * gaussianSigma))
			sw += w
			sx += w * s.x
			sxx += w * s.x * s.x
			sy1 += w * s.d
			sy2 += w * s.r
			sxy1 += w * s.x * s.d
			sxy2 += w * s.x * s.r
			syy1 += w * s.d * s.d
		}
		num := sw*sxy1 - sx*sy1
		den := sw*sxy2 - sx*sy2
		varX := sw*sxx - sx*sx
		varY1 := sw*syy1 - sy1*sy1
		if num*num < kCorrelationThresh*varX*varY1 {
			continue // weak distortion/rate correlation: leave unchanged
		}

		lambda := float64(hlambda)
		if num > 1000 && den < -10 {
			lambda = -num / den
		}
		if lambda < 1 {
			lambda = 1
		}

		bestDelta := 0
		bestCost := math.Inf(1)
		for _, s := range samples {
			delta := int(s.x)
			if delta > qdeltaMaxCap {
				continue
			}
			cost := s.d + lambda*s.r
			if cost < bestCost {
				bestCost = cost
				bestDelta = delta
			}
		}

		newQ := dq0 + float64(bestDelta)
		if newQ < 1 {
			newQ = 1
		} else if newQ > 255 {
			newQ = 255
		}
		out[i] = byte(newQ)
	}
	return out
}
