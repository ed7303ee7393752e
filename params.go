// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

// DefaultQuality is the default of the sjpegenc command's quality flag,
// matching the teacher's DefaultQuality. NewEncodeParams does not apply it:
// the quality is always passed explicitly.
const DefaultQuality = 75

// YUVMode selects the chroma subsampling strategy, per SPEC_FULL.md 6's
// yuv_mode option.
type YUVMode int

const (
	// YUVAuto picks 4:2:0 or 4:4:4 from Riskiness, per SPEC_FULL.md 12.
	YUVAuto YUVMode = iota
	YUV420
	// YUV420Sharp is accepted but falls back to plain YUV420; see
	// SPEC_FULL.md 11.2 and newSampler's doc comment.
	YUV420Sharp
	YUV444
)

// EncodeParams is the full configuration surface an implementer must
// honor, grounded on original_source/src/sjpeg.h's SjpegEncodeParam and
// expanded per SPEC_FULL.md 10.3/12. The zero value is not directly usable;
// construct with NewEncodeParams.
type EncodeParams struct {
	Quality int // 0..100

	YUVMode          YUVMode
	HuffmanCompress  bool
	AdaptiveQuant    bool
	AdaptiveBias     bool
	UseTrellis       bool

	TargetMode  TargetMode
	TargetValue float64
	Passes      int
	Tolerance   float64
	QMin, QMax  int

	QuantizationBias int // AC rounding bias, default 0x78
	QDeltaMaxLuma    int // 0..12
	QDeltaMaxChroma  int // 0..12

	MinQuant          [2]quantMatrix
	MinQuantTolerance int

	EXIF        []byte
	XMP         []byte
	ICCP        []byte
	APPMarkers  []byte

	lumaMatrix   quantMatrix
	chromaMatrix quantMatrix
	customMatrix bool

	searchHook SearchHook
}

// NewEncodeParams builds an EncodeParams at the given quality with the
// defaults sjpeg's constructor applies: Huffman optimization and adaptive
// quantization on, trellis off, no dichotomy target, default AC bias 0x78,
// full luma search range and a conservative chroma cap.
func NewEncodeParams(quality int) *EncodeParams {
	p := &EncodeParams{
		Quality:          quality,
		YUVMode:          YUVAuto,
		HuffmanCompress:  true,
		AdaptiveQuant:    true,
		TargetMode:       TargetNone,
		Passes:           1,
		Tolerance:        0.02,
		QMin:             0,
		QMax:             100,
		QuantizationBias: defaultACBias,
		QDeltaMaxLuma:    qdeltaMax,
		QDeltaMaxChroma:  1,
	}
	p.lumaMatrix, p.chromaMatrix = QuantMatrix(quality, false), QuantMatrix(quality, true)
	return p
}

// SetQuantMatrix overrides the default quality-derived quantization
// matrices with caller-supplied ones.
func (p *EncodeParams) SetQuantMatrix(luma, chroma quantMatrix) {
	p.lumaMatrix, p.chromaMatrix = luma, chroma
	p.customMatrix = true
}

// SetReduction sets a lower bound on quantizer values, applied as
// out[i] = (m[i]*(256-tolerancePercent))>>8, per SPEC_FULL.md 6's
// min_quant[2]/min_quant_tolerance option.
func (p *EncodeParams) SetReduction(minLuma, minChroma quantMatrix, tolerancePercent int) {
	p.MinQuant = [2]quantMatrix{minLuma, minChroma}
	p.MinQuantTolerance = tolerancePercent
}

// SetLimitQuantization clamps both stored matrices to have no entry above
// max. The encoder uses the stored matrices only after SetQuantMatrix;
// quality-derived matrices and the adaptive-Q adjustments made during
// encoding are not clamped.
func (p *EncodeParams) SetLimitQuantization(max byte) {
	for i := range p.lumaMatrix {
		if p.lumaMatrix[i] > max {
			p.lumaMatrix[i] = max
		}
	}
	for i := range p.chromaMatrix {
		if p.chromaMatrix[i] > max {
			p.chromaMatrix[i] = max
		}
	}
}

// ResetMetadata clears any EXIF/XMP/ICCP/APPMarkers payloads.
func (p *EncodeParams) ResetMetadata() {
	p.EXIF, p.XMP, p.ICCP, p.APPMarkers = nil, nil, nil, nil
}

// SetSearchHook installs a custom dichotomy search strategy, per
// SPEC_FULL.md 9's Open Question on SearchHook: declared for forward
// compatibility, but the dichotomy controller supplies its own default and
// no caller is required to set one.
func (p *EncodeParams) SetSearchHook(h SearchHook) { p.searchHook = h }

// SearchHook lets a caller override the dichotomy controller's update
// strategy, mirroring sjpeg.h's SearchHook interface. See
// EncodeParams.SetSearchHook's doc comment: unused by the default pipeline.
type SearchHook interface {
	Setup(qmin, qmax int, target, tolerance float64, forSize bool)
	NextMatrix(current quantMatrix, value float64) quantMatrix
	Update(value float64) (converged bool)
}

func applyMinQuant(m quantMatrix, floor quantMatrix, tolerancePercent int) quantMatrix {
	if tolerancePercent <= 0 {
		return m
	}
	scale := 256 - tolerancePercent
	out := m
	for i := range out {
		bound := byte((int(floor[i]) * scale) >> 8)
		if out[i] < bound {
			out[i] = bound
		}
	}
	return out
}
