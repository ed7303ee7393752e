// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

// numTrellisNodes is the number of alternate quantized magnitudes tried at
// every position the regular quantizer would keep: its own rounded
// magnitude, then one category below it, per SPEC_FULL.md 4.5.
const numTrellisNodes = 2

// trellisMaxScore stands in for the "not yet reached" sentinel score.
const trellisMaxScore = 1e300

// trellisNode is one candidate nonzero AC magnitude at a zig-zag position,
// plus the best-scoring chain of predecessors found for it so far. Index 0
// of the node slice is always the sink: the "nothing kept yet" starting
// point every chain grows from.
type trellisNode struct {
	code     uint16 // packed (mantissa<<4)|category, ready to store as runLevel.level
	nbits    int
	score    float64
	disto    float64
	bits     float64
	run      int
	bestPrev int // index into the node slice; -1 for the sink
	pos      int // zig-zag index; 0 for the sink
	rank     int // chain length, i.e. number of RunLevels produced by this node
}

// trellisQuantizeBlock re-derives one block's AC coefficients with the
// trellis search of SPEC_FULL.md 4.5: every position the regular quantizer
// would keep gets up to numTrellisNodes candidate magnitudes (its rounded
// value, then one category lower), each scored by an exhaustive backward
// search over every earlier candidate and the sink, trading rate under
// acTab against distortion. A position the regular quantizer would already
// zero is never given a candidate node at all; zeroing a position the
// regular quantizer WOULD have kept instead emerges when the winning chain
// simply runs a longer gap over it, the same way
// original_source/src/enc.cc's SearchBestPrev does it.
func trellisQuantizeBlock(natCoefs *block, acCtx *quantizerContext, acTab *huffmanTable) (last int, out []runLevel) {
	nodes := make([]trellisNode, 1, 1+numTrellisNodes*(blockSize-1))
	nodes[0] = trellisNode{bestPrev: -1}

	disto0 := make([]float64, blockSize)
	for zig := 1; zig < blockSize; zig++ {
		j := unzig[zig]
		absV := float64(natCoefs[j])
		if absV < 0 {
			absV = -absV
		}
		disto0[zig] = disto0[zig-1] + absV*absV

		_, u := acCtx.quantizeOne(int32(natCoefs[j]), int(j))
		if u == 0 {
			continue
		}
		mag := u
		if mag < 0 {
			mag = -mag
		}
		signMask := int32(natCoefs[j]) >> 31
		nbits := category(uint32(mag))

		q := float64(uint32(acCtx.matrix[j]) << acBits)
		lambda := q * q / 32.0

		for k := 0; k < numTrellisNodes; k++ {
			err := absV - float64(mag)*q
			mantissa := (uint32(mag) ^ uint32(signMask)) & (uint32(1)<<uint(nbits) - 1)

			nodes = append(nodes, trellisNode{
				code:  uint16(mantissa<<4) | uint16(nbits),
				nbits: nbits,
				disto: err * err,
				score: trellisMaxScore,
				pos:   zig,
			})
			cur := len(nodes) - 1
			if !searchBestPrev(nodes, cur, disto0, acTab, lambda) {
				nodes = nodes[:cur]
				break
			}

			nbits--
			if nbits <= 0 {
				break
			}
			mag = int32(1)<<uint(nbits) - 1
		}
	}

	bestIdx := 0
	bestScore := trellisMaxScore
	total := disto0[blockSize-1]
	for i := len(nodes) - 1; i >= 1; i-- {
		n := &nodes[i]
		tail := total - disto0[n.pos]
		n.disto += tail
		// The EOB symbol's bit cost is not added here, although every chain
		// ending before position 63 emits one.
		n.score += tail
		if n.score < bestScore {
			bestScore = n.score
			bestIdx = i
		}
	}

	nb := nodes[bestIdx].rank
	last = nodes[bestIdx].pos
	if nb == 0 {
		return last, nil
	}
	out = make([]runLevel, nb)
	nz := bestIdx
	for i := nb - 1; i >= 0; i-- {
		out[i] = runLevel{run: nodes[nz].run, level: nodes[nz].code}
		nz = nodes[nz].bestPrev
	}
	return last, out
}

// searchBestPrev scans every node created before nodes[cur] (including the
// sink) for the cheapest predecessor, given the AC symbol cost of the
// intervening run under acTab, and updates nodes[cur] in place. Matches
// original_source/src/enc.cc's SearchBestPrev.
func searchBestPrev(nodes []trellisNode, cur int, disto0 []float64, acTab *huffmanTable, lambda float64) bool {
	node := &nodes[cur]
	baseDisto := node.disto + disto0[node.pos-1]
	found := false
	for i := cur - 1; i >= 0; i-- {
		prev := &nodes[i]
		run := node.pos - 1 - prev.pos
		if run < 0 {
			continue
		}
		bits := float64(node.nbits)
		bits += float64(run>>4) * huffmanBitCost(acTab, acEscapeSymbol)
		sym := uint32(run&15)<<4 | uint32(node.nbits)
		bits += huffmanBitCost(acTab, sym)

		disto := baseDisto - disto0[prev.pos]
		score := disto + lambda*bits + prev.score
		if score < node.score {
			node.score = score
			node.disto = disto
			node.bits = bits
			node.bestPrev = i
			node.rank = prev.rank + 1
			node.run = run
			found = true
		}
	}
	return found
}

// huffmanBitCost returns the code length in bits of sym under t, or a large
// penalty if the symbol was never assigned a code.
func huffmanBitCost(t *huffmanTable, sym uint32) float64 {
	if int(sym) >= len(t.codes) {
		return 32
	}
	packed := t.codes[sym]
	length := packed & 0xff
	if length == 0 {
		return 32
	}
	return float64(length)
}
