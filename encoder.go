// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

import (
	"fmt"
	"image"
	"io"
)

// Result carries the outcome of an encode, per SPEC_FULL.md 11.3: dichotomy
// non-convergence (SPEC_FULL.md 7) is not an error, so callers inspect
// Converged rather than expecting a returned error in that case.
type Result struct {
	Size      int
	PSNR      float64
	Converged bool
}

// method packs the four independent booleans of SPEC_FULL.md 4.7's
// nine-combination compression-method table.
type method struct {
	huffmanOpt     bool
	adaptiveQ      bool
	keepDCTCoeffs  bool
	keepRunLevels  bool
	trellis        bool
}

// methodFor derives the method from an EncodeParams, promoting methods 4/6
// to 7/8 when trellis is requested, per SPEC_FULL.md 6's use_trellis option.
func methodFor(p *EncodeParams) method {
	m := method{
		huffmanOpt:    p.HuffmanCompress,
		adaptiveQ:     p.AdaptiveQuant,
		keepRunLevels: p.HuffmanCompress,
	}
	if p.AdaptiveQuant {
		m.keepDCTCoeffs = true
	}
	if p.UseTrellis && p.AdaptiveQuant {
		m.trellis = true
		m.keepDCTCoeffs = true
	}
	return m
}

// Encode implements the scan orchestration of SPEC_FULL.md 4.7 and 11.3,
// modeled on enc.cc's Encoder::Encode(): histogram collection, adaptive-Q,
// header writing, then a single- or multi-pass scan, wrapped by the
// dichotomy controller when p requests a target size or PSNR.
//
// img's color model determines the sampler: image.Gray produces a
// single-component (grayscale) stream; anything else is treated as
// interleaved RGB per SPEC_FULL.md 6 and sampled per p.YUVMode.
func Encode(w io.Writer, img image.Image, p *EncodeParams) (Result, error) {
	if img == nil || p == nil {
		return Result{}, ErrInvalidParameter
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Result{}, ErrInvalidParameter
	}

	if p.TargetMode == TargetNone {
		buf, res, err := encodeOnePass(img, p, p.Quality)
		if err != nil {
			return Result{}, err
		}
		if _, err := w.Write(buf); err != nil {
			return Result{}, fmt.Errorf("writing encoded output: %w", ErrAllocationFailed)
		}
		return res, nil
	}

	passes := p.Passes
	if passes < 1 {
		passes = 1
	}
	state := newDichotomyState(p.TargetMode, p.TargetValue)
	var lastBuf []byte
	var lastRes Result
	converged := false
	for i := 0; i < passes; i++ {
		buf, res, err := encodeOnePass(img, p, state.quality())
		if err != nil {
			return Result{}, err
		}
		lastBuf, lastRes = buf, res

		var measured float64
		if p.TargetMode == TargetSize {
			measured = float64(len(buf))
		} else {
			measured = res.PSNR
		}
		if state.update(measured) {
			converged = true
			break
		}
	}
	lastRes.Converged = converged
	if _, err := w.Write(lastBuf); err != nil {
		return Result{}, fmt.Errorf("writing encoded output: %w", ErrAllocationFailed)
	}
	return lastRes, nil
}

// encodeOnePass runs one complete scan at a fixed quality and returns the
// resulting byte stream.
func encodeOnePass(img image.Image, p *EncodeParams, quality int) ([]byte, Result, error) {
	b := img.Bounds()
	_, gray := img.(*image.Gray)
	m := methodFor(p)

	lumaMatrix, chromaMatrix := p.lumaMatrix, p.chromaMatrix
	if !p.customMatrix {
		lumaMatrix, chromaMatrix = QuantMatrix(quality, false), QuantMatrix(quality, true)
	}
	if p.MinQuantTolerance > 0 {
		lumaMatrix = applyMinQuant(lumaMatrix, p.MinQuant[0], p.MinQuantTolerance)
		chromaMatrix = applyMinQuant(chromaMatrix, p.MinQuant[1], p.MinQuantTolerance)
	}

	yuvMode := int(p.YUVMode)
	if p.YUVMode == YUVAuto && !gray {
		riskMode, _ := Riskiness(img)
		if riskMode == 1 {
			yuvMode = 3
		} else {
			yuvMode = 1
		}
	}
	samp := newSampler(yuvMode, gray)
	nComponent := samp.numComponents()
	if nComponent > maxComponents {
		return nil, Result{}, fmt.Errorf("sjpeg: %d components exceeds the supported maximum of %d: %w", nComponent, maxComponents, ErrInvalidParameter)
	}

	w := newBitWriter(4096)
	writeSOI(w)
	writeAPP0(w)
	writeAPPMarkers(w, p.APPMarkers)
	if err := writeEXIF(w, p.EXIF); err != nil {
		return nil, Result{}, err
	}
	if err := writeICCP(w, p.ICCP); err != nil {
		return nil, Result{}, err
	}
	if err := writeXMP(w, p.XMP); err != nil {
		return nil, Result{}, err
	}

	if gray {
		writeDQT(w, lumaMatrix)
	} else {
		writeDQT(w, lumaMatrix, chromaMatrix)
	}

	quantIdx := make([]byte, nComponent)
	samplingFactors := make([]byte, nComponent)
	for i := 0; i < nComponent; i++ {
		samplingFactors[i] = samp.samplingFactor(i)
		if i == 0 {
			quantIdx[i] = 0
		} else {
			quantIdx[i] = 1
		}
	}
	writeSOF(w, b.Dx(), b.Dy(), nComponent, quantIdx, samplingFactors)

	res, err := runScan(w, img, samp, lumaMatrix, chromaMatrix, p, m, nComponent)
	if err != nil {
		return nil, Result{}, err
	}
	writeEOI(w)
	buf := w.grab()
	res.Size = len(buf)
	return buf, res, nil
}

// storedBlock retains one quantized block's descriptor plus whatever m
// requires to keep (coefficients, RunLevels, or both) for a later pass.
type storedBlock struct {
	component int
	desc      blockDescriptor
	levels    []runLevel
	coeffs    block
}

// componentPlan describes, per component, the quantizer contexts and
// accumulated statistics used across an MCU grid pass.
type componentPlan struct {
	dcCtx     *quantizerContext
	acCtx     *quantizerContext
	prevDC    int32
	histogram histogram
	dcFreq    dcFrequencyCounter
	acFreq    acFrequencyCounter
}

// runScan walks the MCU grid once (or twice, when adaptive quantization
// first collects coefficient histograms), applying adaptive quantization
// and/or trellis search as m dictates, and emits the DHT and SOS headers
// plus the entropy-coded segment from the retained blocks.
func runScan(w *bitWriter, img image.Image, samp sampler, lumaMatrix, chromaMatrix quantMatrix, p *EncodeParams, m method, nComponent int) (Result, error) {
	b := img.Bounds()
	mcuW, mcuH := mcuFootprint(samp)
	mcusX := (b.Dx() + mcuW - 1) / mcuW
	mcusY := (b.Dy() + mcuH - 1) / mcuH

	blocksPerComp := samp.blocksPerComponent()
	totalBlocksPerMCU := 0
	for _, n := range blocksPerComp {
		totalBlocksPerMCU += n
	}

	plans := make([]componentPlan, nComponent)
	matrices := make([]quantMatrix, nComponent)
	for i := range plans {
		mat := lumaMatrix
		if i > 0 {
			mat = chromaMatrix
		}
		matrices[i] = mat
		plans[i].dcCtx = finalizeQuantizer(mat, p.QuantizationBias)
		plans[i].acCtx = finalizeQuantizer(mat, p.QuantizationBias)
	}

	// Pass 1: collect histograms (for adaptive Q) over every block.
	scratch := make([]block, totalBlocksPerMCU)
	if m.adaptiveQ {
		for my := 0; my < mcusY; my++ {
			for mx := 0; mx < mcusX; mx++ {
				samp.sample(img, mx, my, scratch)
				offset := 0
				for ci := 0; ci < nComponent; ci++ {
					for k := 0; k < blocksPerComp[ci]; k++ {
						bl := scratch[offset]
						fdct(&bl)
						plans[ci].histogram.add(&bl)
						offset++
					}
				}
			}
		}
		for ci := range plans {
			deltaCap := p.QDeltaMaxLuma
			minIdx := 0
			if ci > 0 {
				deltaCap = p.QDeltaMaxChroma
				minIdx = 1
			}
			matrices[ci] = analyseHisto(&plans[ci].histogram, matrices[ci], p.MinQuant[minIdx], deltaCap)
			plans[ci].dcCtx = finalizeQuantizer(matrices[ci], p.QuantizationBias)
			plans[ci].acCtx = finalizeQuantizer(matrices[ci], p.QuantizationBias)
		}
	}

	// Pass 2: quantize every block (optionally trellis-refined), collecting
	// Huffman frequencies and RunLevels/coefficients per m's retention bits.
	var stored []storedBlock

	var sqErrSum float64
	var numBlocks int
	for my := 0; my < mcusY; my++ {
		for mx := 0; mx < mcusX; mx++ {
			samp.sample(img, mx, my, scratch)
			offset := 0
			for ci := 0; ci < nComponent; ci++ {
				for k := 0; k < blocksPerComp[ci]; k++ {
					bl := scratch[offset]
					offset++
					fdct(&bl)

					desc, levels := quantizeBlock(&bl, plans[ci].dcCtx, plans[ci].acCtx, plans[ci].prevDC, nil)
					plans[ci].prevDC = desc.dc

					plans[ci].dcFreq.add(desc.dcDiff)
					plans[ci].acFreq.addBlock(levels, desc.last)
					sqErrSum += desc.sqErr
					numBlocks++

					// RunLevels are always retained across the frequency-
					// counting loop so the entropy segment can be emitted
					// once the Huffman tables are finalized below, without
					// a third pass over the pixels. Coefficients are kept
					// in addition only when m calls for them (trellis
					// needs them to re-search against the final tables).
					sb := storedBlock{component: ci, desc: desc, levels: levels}
					if m.keepDCTCoeffs {
						sb.coeffs = bl
					}
					stored = append(stored, sb)
				}
			}
		}
	}

	dcTables := make([]*huffmanTable, 2*nComponent)
	if m.huffmanOpt {
		for ci := range plans {
			dcTables[2*ci] = buildOptimalTable(plans[ci].dcFreq.freq[:])
			dcTables[2*ci+1] = buildOptimalTable(plans[ci].acFreq.freq[:])
		}
	} else {
		for ci := range plans {
			dcTables[2*ci] = defaultDCTable()
			dcTables[2*ci+1] = defaultACTable()
		}
	}

	tablesForDHT := make([]*huffmanTable, 0, 4)
	tablesForDHT = append(tablesForDHT, dcTables[0], dcTables[1])
	if nComponent > 1 {
		tablesForDHT = append(tablesForDHT, dcTables[2], dcTables[3])
	}
	writeDHT(w, nComponent, tablesForDHT)

	dcAcIDs := make([]byte, nComponent)
	for i := range dcAcIDs {
		if i == 0 {
			dcAcIDs[i] = 0x00
		} else {
			dcAcIDs[i] = 0x11
		}
	}
	writeSOS(w, nComponent, dcAcIDs)

	if m.trellis && m.keepDCTCoeffs {
		reTrellisAndEmit(w, stored, plans, dcTables)
	} else {
		emitStored(w, stored, dcTables)
	}
	w.flush()

	psnr := psnrFromSqErr(sqErrSum, numBlocks*blockSize)
	return Result{PSNR: psnr}, nil
}

func mcuFootprint(samp sampler) (w, h int) {
	switch samp.(type) {
	case sampler420:
		return mcuSize420, mcuSize420
	default:
		return mcuSize444, mcuSize444
	}
}

// emitStored emits the entropy-coded segment from each retained block's
// RunLevels, using its component's tables. It is the emission path of every
// encode without trellis, and the final step of reTrellisAndEmit.
func emitStored(w *bitWriter, stored []storedBlock, tables []*huffmanTable) {
	for _, sb := range stored {
		dcTab := tables[2*sb.component]
		acTab := tables[2*sb.component+1]
		emitBlock(w, dcTab, acTab, sb.desc, sb.levels)
	}
}

// reTrellisAndEmit re-quantizes every retained block's coefficients through
// the trellis search bound to the final Huffman tables, then emits it.
func reTrellisAndEmit(w *bitWriter, stored []storedBlock, plans []componentPlan, tables []*huffmanTable) {
	for i := range stored {
		sb := &stored[i]
		acTab := tables[2*sb.component+1]
		last, levels := trellisQuantizeBlock(&sb.coeffs, plans[sb.component].acCtx, acTab)
		sb.desc.last = last
		sb.levels = levels
	}
	emitStored(w, stored, tables)
}

// emitBlock writes one block's DC-diff code and AC RunLevels using the
// given Huffman tables, including 16-run escapes and an EOB when needed.
func emitBlock(w *bitWriter, dcTab, acTab *huffmanTable, desc blockDescriptor, levels []runLevel) {
	dcCat := desc.dcDiff & 0x0f
	w.putPackedCode(dcTab.codes[dcCat])
	if dcCat > 0 {
		w.putBits(uint32(desc.dcDiff>>4), int(dcCat))
	}

	for _, rl := range levels {
		run := rl.run
		for run > 15 {
			w.putPackedCode(acTab.codes[acEscapeSymbol])
			run -= 16
		}
		cat := rl.level & 0x0f
		sym := uint32(run)<<4 | uint32(cat)
		w.putPackedCode(acTab.codes[sym])
		if cat > 0 {
			w.putBits(uint32(rl.level>>4), int(cat))
		}
	}
	if desc.last < blockSize-1 {
		w.putPackedCode(acTab.codes[acEOBSymbol])
	}
}

// defaultDCTable / defaultACTable build canonical tables from fixed
// synthetic frequency profiles (DC categories weighted toward small values;
// AC symbols uniform, with EOB and the 16-zero escape favoured), used when
// Huffman optimization is disabled (methods 0 and 3). They are not the JPEG
// Annex K example tables.
func defaultDCTable() *huffmanTable {
	freq := make([]uint32, numDCSymbols)
	for i := range freq {
		freq[i] = uint32(numDCSymbols - i)
	}
	return buildOptimalTable(freq)
}

func defaultACTable() *huffmanTable {
	freq := make([]uint32, numACSymbols)
	for i := range freq {
		freq[i] = 1
	}
	freq[acEOBSymbol] = numACSymbols
	freq[acEscapeSymbol] = numACSymbols / 2
	return buildOptimalTable(freq)
}
