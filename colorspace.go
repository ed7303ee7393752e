// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

import (
	"image"
	"image/color"
)

// sampler extracts one MCU's worth of zero-centered YCbCr blocks from the
// source image, implementing the "get_yuv_block" external collaborator
// contract of SPEC_FULL.md 6 for a specific chroma subsampling mode.
type sampler interface {
	// numComponents is 1 for grayscale, 3 otherwise.
	numComponents() int
	// blocksPerComponent returns, per component in SOF order, how many 8x8
	// blocks one MCU contributes (4/1/1 for 4:2:0, 1/1/1 for 4:4:4, 1 for
	// grayscale).
	blocksPerComponent() []int
	// samplingFactor returns the packed H<<4|V SOF byte for component i.
	samplingFactor(i int) byte
	// sample fills blocks with one MCU's data. mcuX/mcuY are MCU indices;
	// the caller provides a scratch slice sized to blocksPerComponent's sum.
	sample(img image.Image, mcuX, mcuY int, blocks []block)
}

// mcuSize420 / mcuSize444 are the pixel footprint of one MCU for the 4:2:0
// and 4:4:4/grayscale samplers, respectively.
const (
	mcuSize420 = 16
	mcuSize444 = 8
)

type sampler420 struct{}

func (sampler420) numComponents() int          { return 3 }
func (sampler420) blocksPerComponent() []int   { return []int{4, 1, 1} }
func (sampler420) samplingFactor(i int) byte {
	if i == 0 {
		return 0x22
	}
	return 0x11
}

func (sampler420) sample(img image.Image, mcuX, mcuY int, blocks []block) {
	origin := image.Pt(mcuX*mcuSize420, mcuY*mcuSize420)
	var y16, cb16, cr16 [4]block
	for k := 0; k < 4; k++ {
		p := image.Pt(origin.X+(k&1)*8, origin.Y+(k>>1)*8)
		extractYCbCr8x8(img, p, &y16[k], &cb16[k], &cr16[k])
	}
	for k := 0; k < 4; k++ {
		blocks[k] = y16[k]
		centerBlock(&blocks[k])
	}
	scaleAndCenter(&blocks[4], &cb16)
	scaleAndCenter(&blocks[5], &cr16)
}

type sampler444 struct{}

func (sampler444) numComponents() int        { return 3 }
func (sampler444) blocksPerComponent() []int { return []int{1, 1, 1} }
func (sampler444) samplingFactor(int) byte   { return 0x11 }

func (sampler444) sample(img image.Image, mcuX, mcuY int, blocks []block) {
	p := image.Pt(mcuX*mcuSize444, mcuY*mcuSize444)
	extractYCbCr8x8(img, p, &blocks[0], &blocks[1], &blocks[2])
	centerBlock(&blocks[0])
	centerBlock(&blocks[1])
	centerBlock(&blocks[2])
}

type samplerGray struct{}

func (samplerGray) numComponents() int        { return 1 }
func (samplerGray) blocksPerComponent() []int { return []int{1} }
func (samplerGray) samplingFactor(int) byte   { return 0x11 }

func (samplerGray) sample(img image.Image, mcuX, mcuY int, blocks []block) {
	p := image.Pt(mcuX*mcuSize444, mcuY*mcuSize444)
	extractY8x8(img, p, &blocks[0])
	centerBlock(&blocks[0])
}

// newSampler chooses the sampler for a YUV mode (0=4:2:0 default, 2=sharp
// 4:2:0, 3=4:4:4) and component count. Mode 2 ("sharp" 4:2:0 edge-aware
// downsampling) is not implemented: SPEC_FULL.md 11.2 documents this as a
// deliberate fallback to plain box-filtered 4:2:0, since sjpeg's sharp
// downsampler depends on SIMD-optimized code paths with no grounded Go
// equivalent anywhere in the retrieval pack.
func newSampler(yuvMode int, gray bool) sampler {
	if gray {
		return samplerGray{}
	}
	switch yuvMode {
	case 3:
		return sampler444{}
	default:
		return sampler420{}
	}
}

// centerBlock shifts an unsigned-pixel block (values 0..255) to the signed,
// zero-centered range the fDCT expects ([-128, 127]), per SPEC_FULL.md 6.
func centerBlock(b *block) {
	for i := range b {
		b[i] -= 128
	}
}

// scaleAndCenter downsamples four adjacent 8x8 unsigned-pixel blocks
// (arranged top-left, top-right, bottom-left, bottom-right) into one 8x8
// zero-centered block, box-filtering 2x2 groups of source pixels. This is
// the teacher's "scale" helper, generalized to also perform centering.
func scaleAndCenter(dst *block, src *[4]block) {
	for i := 0; i < 4; i++ {
		dstOff := (i&2)<<4 | (i&1)<<2
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				j := 16*y + 2*x
				sum := src[i][j] + src[i][j+1] + src[i][j+8] + src[i][j+9]
				dst[8*y+x+dstOff] = ((sum + 2) >> 2) - 128
			}
		}
	}
}

// extractYCbCr8x8 stores the 8x8 region of m whose top-left corner is p
// into yBlock/cbBlock/crBlock, in unsigned [0,255] form, clamping to the
// image bounds at the edges. Grounded on the teacher's toYCbCr, with fast
// paths for the two concrete image types it special-cased.
func extractYCbCr8x8(m image.Image, p image.Point, yBlock, cbBlock, crBlock *block) {
	switch im := m.(type) {
	case *image.RGBA:
		extractYCbCr8x8RGBA(im, p, yBlock, cbBlock, crBlock)
		return
	case *image.YCbCr:
		extractYCbCr8x8Native(im, p, yBlock, cbBlock, crBlock)
		return
	}
	b := m.Bounds()
	xmax, ymax := b.Max.X-1, b.Max.Y-1
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			r, g, bb, _ := m.At(min(p.X+i, xmax), min(p.Y+j, ymax)).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bb>>8))
			yBlock[8*j+i] = int16(yy)
			cbBlock[8*j+i] = int16(cb)
			crBlock[8*j+i] = int16(cr)
		}
	}
}

func extractYCbCr8x8RGBA(m *image.RGBA, p image.Point, yBlock, cbBlock, crBlock *block) {
	b := m.Bounds()
	xmax, ymax := b.Max.X-1, b.Max.Y-1
	for j := 0; j < 8; j++ {
		sj := p.Y + j
		if sj > ymax {
			sj = ymax
		}
		offset := (sj-b.Min.Y)*m.Stride - b.Min.X*4
		for i := 0; i < 8; i++ {
			sx := p.X + i
			if sx > xmax {
				sx = xmax
			}
			pix := m.Pix[offset+sx*4:]
			yy, cb, cr := color.RGBToYCbCr(pix[0], pix[1], pix[2])
			yBlock[8*j+i] = int16(yy)
			cbBlock[8*j+i] = int16(cb)
			crBlock[8*j+i] = int16(cr)
		}
	}
}

func extractYCbCr8x8Native(m *image.YCbCr, p image.Point, yBlock, cbBlock, crBlock *block) {
	b := m.Bounds()
	xmax, ymax := b.Max.X-1, b.Max.Y-1
	for j := 0; j < 8; j++ {
		sy := p.Y + j
		if sy > ymax {
			sy = ymax
		}
		for i := 0; i < 8; i++ {
			sx := p.X + i
			if sx > xmax {
				sx = xmax
			}
			yBlock[8*j+i] = int16(m.Y[m.YOffset(sx, sy)])
			cbBlock[8*j+i] = int16(m.Cb[m.COffset(sx, sy)])
			crBlock[8*j+i] = int16(m.Cr[m.COffset(sx, sy)])
		}
	}
}

// extractY8x8 stores the 8x8 region of m (treated as grayscale luminance)
// whose top-left corner is p into yBlock, in unsigned [0,255] form.
func extractY8x8(m image.Image, p image.Point, yBlock *block) {
	if g, ok := m.(*image.Gray); ok {
		b := g.Bounds()
		xmax, ymax := b.Max.X-1, b.Max.Y-1
		for j := 0; j < 8; j++ {
			for i := 0; i < 8; i++ {
				idx := g.PixOffset(min(p.X+i, xmax), min(p.Y+j, ymax))
				yBlock[8*j+i] = int16(g.Pix[idx])
			}
		}
		return
	}
	b := m.Bounds()
	xmax, ymax := b.Max.X-1, b.Max.Y-1
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			r, g, bb, _ := m.At(min(p.X+i, xmax), min(p.Y+j, ymax)).RGBA()
			yy, _, _ := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bb>>8))
			yBlock[8*j+i] = int16(yy)
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
