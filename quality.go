// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

import (
	"image"
	"image/color"
)

// baseLumaMatrix and baseChromaMatrix are the standard JPEG (Annex K)
// quality-50 quantization matrices, in natural (not zig-zag) order.
var baseLumaMatrix = quantMatrix{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

var baseChromaMatrix = quantMatrix{
	17, 18, 24, 47, 99, 99, 99, 99,
	18, 21, 26, 66, 99, 99, 99, 99,
	24, 26, 56, 99, 99, 99, 99, 99,
	47, 66, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
}

// QuantMatrix scales the standard base matrix by quality, per the jpeg-6b
// formula named in SPEC_FULL.md 6: f = 5000/q for q<50, else 200-2q;
// out[i] = clamp((in[i]*f + 50)/100, 1, 255).
func QuantMatrix(quality int, chroma bool) quantMatrix {
	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}
	var f int
	if quality < 50 {
		f = 5000 / quality
	} else {
		f = 200 - 2*quality
	}
	base := baseLumaMatrix
	if chroma {
		base = baseChromaMatrix
	}
	var out quantMatrix
	for i, v := range base {
		scaled := (int(v)*f + 50) / 100
		if scaled < 1 {
			scaled = 1
		} else if scaled > 255 {
			scaled = 255
		}
		out[i] = byte(scaled)
	}
	return out
}

// EstimateQuality inverts QuantMatrix approximately: it finds the quality
// value whose derived matrix best matches m by least-squares over all 64
// entries, per SPEC_FULL.md 12's SjpegEstimateQuality.
func EstimateQuality(m quantMatrix, chroma bool) int {
	best, bestErr := 50, -1.0
	for q := 1; q <= 100; q++ {
		cand := QuantMatrix(q, chroma)
		var errSum float64
		for i := range cand {
			d := float64(int(cand[i]) - int(m[i]))
			errSum += d * d
		}
		if bestErr < 0 || errSum < bestErr {
			bestErr, best = errSum, q
		}
	}
	return best
}

// Riskiness is a best-effort port of SjpegRiskiness's intent (SPEC_FULL.md
// 12): a cheap edge-difference heuristic estimating how much an image would
// benefit from 4:4:4 over 4:2:0 chroma subsampling. sjpeg's own formula is
// unpublished/unspecified in the retrieval pack's headers, so this computes
// a chroma-edge-energy ratio instead: mode 0 (use 4:2:0) when chroma detail
// is low relative to luma, mode 1 (use 4:4:4) otherwise.
func Riskiness(img image.Image) (mode int, risk float64) {
	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return 0, 0
	}
	var chromaEdge, lumaEdge float64
	var n int
	for y := b.Min.Y; y < b.Max.Y-1; y++ {
		for x := b.Min.X; x < b.Max.X-1; x++ {
			r0, g0, b0, _ := img.At(x, y).RGBA()
			r1, g1, b1, _ := img.At(x+1, y).RGBA()
			y0, cb0, cr0 := colorRGBToYCbCr(r0, g0, b0)
			y1, cb1, cr1 := colorRGBToYCbCr(r1, g1, b1)
			lumaEdge += absF(y1 - y0)
			chromaEdge += absF(cb1-cb0) + absF(cr1-cr0)
			n++
		}
	}
	if n == 0 || lumaEdge == 0 {
		return 0, 0
	}
	risk = chromaEdge / (lumaEdge * 2)
	if risk > 0.35 {
		return 1, risk
	}
	return 0, risk
}

func colorRGBToYCbCr(r, g, bl uint32) (y, cb, cr float64) {
	yy, cb8, cr8 := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
	return float64(yy), float64(cb8), float64(cr8)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
