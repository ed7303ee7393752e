// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

// defaultACBias and defaultDCBias are the rounding-bias defaults from
// SPEC_FULL.md 3 and 6: 0x78 for AC (user-overridable via EncodeParams),
// 0x80 for DC (fixed).
const (
	defaultACBias = 0x78
	dcBias        = 0x80
)

// quantMatrix is a 64-entry quantization matrix in natural order, values in
// 1..255.
type quantMatrix [blockSize]byte

// quantizerContext is derived once per quantMatrix via finalizeQuantizer. It
// holds everything the quantizer primitive (SPEC_FULL.md 4.2) needs per
// coefficient position.
type quantizerContext struct {
	matrix quantMatrix
	iq     [blockSize]uint32 // 16-bit fixed point reciprocal of matrix[i]
	ibias  [blockSize]uint32 // effective rounding bias
	qthresh [blockSize]uint32 // smallest |v| that quantizes to nonzero
}

// finalizeQuantizer derives a quantizerContext from a matrix and rounding
// biases (dcBias for position 0, acBias for positions 1..63), per
// SPEC_FULL.md 3's "Quantizer context" invariants.
func finalizeQuantizer(m quantMatrix, acBias int) *quantizerContext {
	c := &quantizerContext{matrix: m}
	for i := 0; i < blockSize; i++ {
		q := uint32(m[i])
		bias := uint32(acBias)
		if i == 0 {
			bias = dcBias
		}

		var iq uint32
		if q == 1 {
			// Special-case precision trick: preserve bit-exact behavior for
			// matrices containing 1s. See SPEC_FULL.md 9's "Bias constant
			// for v=1 special-case".
			iq = 0xffff
			bias = 0x80
		} else {
			iq = (uint32(1)<<16 + q/2) / q
		}
		ibias := ((bias*q)<<acBits + 128) >> 8

		c.iq[i] = iq
		c.ibias[i] = ibias

		// qthresh is the smallest |v| for which quantize(v) > 0: solve
		// ((a+ibias)*iq)>>16>>acBits > 0 for the smallest integer a.
		var a uint32
		for a = 0; ; a++ {
			u := ((a + ibias) * iq) >> 16 >> acBits
			if u > 0 {
				break
			}
		}
		c.qthresh[i] = a
	}
	return c
}

// quantizeOne applies the fixed-point reciprocal quantizer to a single
// signed coefficient v at natural position j, per SPEC_FULL.md 4.2 steps
// 1-4. It returns the unsigned magnitude category/mantissa pair packed as
// (mantissa<<4)|category, and the quantized signed magnitude u (0 if v was
// below threshold).
func (c *quantizerContext) quantizeOne(v int32, j int) (level uint16, u int32) {
	m := v >> 31
	a := uint32((v ^ m) - m)
	if a < c.qthresh[j] {
		return 0, 0
	}
	uu := ((a + c.ibias[j]) * c.iq[j]) >> 16 >> acBits
	cat := category(uu)
	mantissa := (uu ^ uint32(m)) & (uint32(1)<<uint(cat) - 1)
	level = uint16(mantissa<<4) | uint16(cat)
	if m != 0 {
		u = -int32(uu)
	} else {
		u = int32(uu)
	}
	return level, u
}

// runLevel is a single AC token: run is the count of preceding zero AC
// coefficients (possibly requiring 16-run escapes when emitted), and level
// packs (mantissa<<4)|category. See SPEC_FULL.md 3.
type runLevel struct {
	run   int
	level uint16
}

// blockDescriptor summarizes one quantized block, per SPEC_FULL.md 3.
// Its component index is tracked separately by the caller (storedBlock),
// which also needs it to select Huffman tables after quantizeBlock returns.
type blockDescriptor struct {
	last   int // zig-zag index of the final nonzero AC, or 0 if none
	dcDiff uint16
	dc     int32   // quantized signed DC value
	sqErr  float64 // sum of squared (original-dequantized) error over all 64 coefficients, scaled per SPEC_FULL.md 4.6
}

// quantizeBlock implements the quantizer primitive of SPEC_FULL.md 4.2: it
// walks a natural-order coefficient block in zig-zag order, quantizes the DC
// coefficient against dcCtx and every AC coefficient against acCtx, appends
// RunLevels to out, and returns the block descriptor plus the (possibly
// grown) out slice.
func quantizeBlock(b *block, dcCtx, acCtx *quantizerContext, prevDC int32, out []runLevel) (blockDescriptor, []runLevel) {
	_, dcU := dcCtx.quantizeOne(int32(b[0]), 0)
	desc := blockDescriptor{dc: dcU}
	desc.dcDiff = generateDCDiffCode(dcU - prevDC)
	desc.sqErr = squaredError(int32(b[0]), dcU, dcCtx.matrix[0])

	last := 0
	run := 0
	for zig := 1; zig < blockSize; zig++ {
		j := unzig[zig]
		level, u := acCtx.quantizeOne(int32(b[j]), int(j))
		desc.sqErr += squaredError(int32(b[j]), u, acCtx.matrix[j])
		if u == 0 {
			run++
			continue
		}
		out = append(out, runLevel{run: run, level: level})
		run = 0
		last = zig
	}
	desc.last = last
	return desc, out
}

// squaredError returns the squared difference between a coefficient v
// (fDCT output, scaled by 16) divided by 16 and its dequantized
// reconstruction u*q. Used to accumulate the PSNR estimate of
// SPEC_FULL.md 4.6 without a separate pass over the pixels.
func squaredError(v, u int32, q byte) float64 {
	d := float64(v)/16.0 - float64(u)*float64(q)
	return d * d
}

// generateDCDiffCode packs a signed DC delta into (suffix<<4)|category, the
// standard JPEG category+magnitude coding described in SPEC_FULL.md 3 and 6.
// Negatives are coded as (diff-1) masked to category bits (one's complement
// form).
func generateDCDiffCode(diff int32) uint16 {
	a := diff
	if a < 0 {
		a = -a
	}
	cat := category(uint32(a))
	suffix := diff
	if diff < 0 {
		suffix = diff - 1
	}
	mask := int32(1)<<uint(cat) - 1
	return uint16(suffix&mask)<<4 | uint16(cat)
}
