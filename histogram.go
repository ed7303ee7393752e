// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

const (
	hshift      = 2   // SPEC_FULL.md 3: HSHIFT
	hhalf       = 2   // SPEC_FULL.md 4.3: HHALF, bin centroid offset
	maxHisto    = 128 // SPEC_FULL.md 3: MAX_HISTO
	numHistoBins = maxHisto + 1
)

// histogram holds, for one component, per-subband counts of
// min(|coef|>>HSHIFT, MAX_HISTO) across every block of that component. See
// SPEC_FULL.md 3.
type histogram struct {
	counts [blockSize][numHistoBins]uint32
}

// add records one natural-order coefficient block (pre-quantization,
// absolute fDCT output) into the histogram. Bins are indexed by natural
// position, matching quantMatrix's indexing.
func (h *histogram) add(b *block) {
	for j := 0; j < blockSize; j++ {
		v := int32(b[j])
		if v < 0 {
			v = -v
		}
		bin := v >> hshift
		if bin > maxHisto {
			bin = maxHisto
		}
		h.counts[j][bin]++
	}
}

// lastOccupiedBin returns the one-based count of occupied bins for subband
// position i (the highest nonzero bin index plus one), matching
// original_source/src/enc.cc's "last = i+1" convention, or 0 if the
// histogram is empty.
func (h *histogram) lastOccupiedBin(i int) int {
	for b := maxHisto; b >= 0; b-- {
		if h.counts[i][b] != 0 {
			return b + 1
		}
	}
	return 0
}

// population returns the total sample count for subband position i.
func (h *histogram) population(i int) uint64 {
	var total uint64
	for _, c := range h.counts[i] {
		total += uint64(c)
	}
	return total
}
