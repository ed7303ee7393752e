package sjpeg

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markerIndex(buf []byte, marker byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == 0xff && buf[i+1] == marker {
			return i
		}
	}
	return -1
}

func solidGrayImage(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: v, G: v, B: v, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func stripedImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if (x/4)%2 == 0 {
				v = 255
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestEncodeSolidGrayMarkerOrder(t *testing.T) {
	img := solidGrayImage(16, 16, 128)
	p := NewEncodeParams(DefaultQuality)

	var buf bytes.Buffer
	res, err := Encode(&buf, img, p)
	require.NoError(t, err)
	assert.Greater(t, res.Size, 0)

	out := buf.Bytes()
	require.Len(t, out, res.Size)

	soi := markerIndex(out, soiMarker)
	app0 := markerIndex(out, app0Marker)
	dqt := markerIndex(out, dqtMarker)
	sof0 := markerIndex(out, sof0Marker)
	dht := markerIndex(out, dhtMarker)
	sos := markerIndex(out, sosMarker)

	require.Equal(t, 0, soi, "SOI must be the first two bytes")
	require.NotEqual(t, -1, app0)
	require.NotEqual(t, -1, dqt)
	require.NotEqual(t, -1, sof0)
	require.NotEqual(t, -1, dht)
	require.NotEqual(t, -1, sos)

	assert.Less(t, soi, app0)
	assert.Less(t, app0, dqt)
	assert.Less(t, dqt, sof0)
	assert.Less(t, sof0, dht)
	assert.Less(t, dht, sos)

	assert.Equal(t, byte(0xff), out[len(out)-2], "stream must end with EOI")
	assert.Equal(t, byte(eoiMarker), out[len(out)-1])
}

func TestEncodeStripedImageHighMethod(t *testing.T) {
	img := stripedImage(32, 32)
	p := NewEncodeParams(DefaultQuality)
	p.UseTrellis = true

	var buf bytes.Buffer
	res, err := Encode(&buf, img, p)
	require.NoError(t, err)
	assert.Greater(t, res.Size, 0)
	assert.Greater(t, res.PSNR, 0.0)
}

func TestEncodeGrayscaleSingleComponent(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 16)})
		}
	}
	p := NewEncodeParams(DefaultQuality)

	var buf bytes.Buffer
	res, err := Encode(&buf, img, p)
	require.NoError(t, err)

	out := buf.Bytes()
	sofIdx := markerIndex(out, sof0Marker)
	require.NotEqual(t, -1, sofIdx)
	// SOF0 layout: FF C0 len(2) precision(1) height(2) width(2) nComponents(1)
	nComponents := out[sofIdx+2+2+1+2+2]
	assert.Equal(t, byte(1), nComponents, "a grayscale source must produce a single-component SOF0")
	assert.Greater(t, res.Size, 0)
}

func TestEncodePureDCBlock(t *testing.T) {
	img := solidGrayImage(8, 8, 200)
	p := NewEncodeParams(DefaultQuality)

	var buf bytes.Buffer
	res, err := Encode(&buf, img, p)
	require.NoError(t, err)
	assert.Greater(t, res.Size, 0)
	assert.Greater(t, res.PSNR, 30.0, "a flat 8x8 block should compress with very little distortion")
}

func TestEncodeDichotomyTargetSizeResultMatchesOutput(t *testing.T) {
	img := stripedImage(64, 64)
	p := NewEncodeParams(DefaultQuality)
	p.TargetMode = TargetSize
	p.TargetValue = 2000
	p.Passes = 8

	var buf bytes.Buffer
	res, err := Encode(&buf, img, p)
	require.NoError(t, err)
	assert.Greater(t, res.Size, 0)
	// Whether or not it converges within the pass budget, Result must always
	// reflect the last completed pass, never a partial buffer.
	assert.Equal(t, buf.Len(), res.Size)
}

func TestEncodeRejectsNilImage(t *testing.T) {
	p := NewEncodeParams(DefaultQuality)
	var buf bytes.Buffer
	_, err := Encode(&buf, nil, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestEncodeRejectsEmptyBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 0, 0))
	p := NewEncodeParams(DefaultQuality)
	var buf bytes.Buffer
	_, err := Encode(&buf, img, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestEncode444ModeProducesOutput(t *testing.T) {
	img := solidGrayImage(16, 16, 64)
	p := NewEncodeParams(DefaultQuality)
	p.YUVMode = YUV444

	var buf bytes.Buffer
	res, err := Encode(&buf, img, p)
	require.NoError(t, err)
	assert.Greater(t, res.Size, 0)
}

func TestEncodeSynthesizedHistogramAdaptiveQuant(t *testing.T) {
	// A busy, high-frequency-content image exercises the adaptive-quant
	// histogram/analysis pass end to end without panicking or producing a
	// degenerate (zero-size) stream.
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := uint8((x*7 + y*13) % 256)
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: v / 2, A: 255})
		}
	}
	p := NewEncodeParams(DefaultQuality)
	p.AdaptiveQuant = true

	var buf bytes.Buffer
	res, err := Encode(&buf, img, p)
	require.NoError(t, err)
	assert.Greater(t, res.Size, 0)
	assert.Greater(t, res.PSNR, 0.0)
}

func TestMethodForPromotesTrellisVariant(t *testing.T) {
	p := NewEncodeParams(DefaultQuality)
	p.AdaptiveQuant = true
	p.UseTrellis = true

	m := methodFor(p)
	assert.True(t, m.trellis)
	assert.True(t, m.keepDCTCoeffs)
}

func TestMethodForNoTrellisWithoutAdaptiveQuant(t *testing.T) {
	p := NewEncodeParams(DefaultQuality)
	p.AdaptiveQuant = false
	p.UseTrellis = true

	m := methodFor(p)
	assert.False(t, m.trellis, "trellis search requires adaptive quantization's retained coefficients")
}
