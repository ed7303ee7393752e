// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sjpeg

// blockSize is the number of samples (and coefficients) in an 8x8 block.
const blockSize = 64

// acBits is the number of fractional bits the forward DCT pre-scales its
// output by, per SPEC_FULL.md 3 "Coefficient block".
const acBits = 4

// block holds the 64 samples/coefficients of an 8x8 block in row-major
// natural order (not zig-zag).
type block [blockSize]int16

// unzig[z] is the natural-order index of the z'th zig-zag entry — the fixed
// standard JPEG permutation referenced throughout SPEC_FULL.md.
var unzig = [blockSize]int32{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// bitCount[v] is the number of bits needed to represent unsigned value v,
// i.e. the JPEG "category" of a magnitude in [0, 255]. category() extends
// this table to arbitrary uint32 magnitudes.
var bitCount = [256]byte{
	0, 1, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
	8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
	8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
	8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
	8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
	8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
	8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
	8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
}

// category returns floor(log2(u)) + 1 for u > 0, and 0 for u == 0 — the
// JPEG "category" of an unsigned magnitude. Quantized AC/DC magnitudes
// never exceed 16 bits, so the 256-entry table covers every byte of u and
// the loop below runs at most 3 times.
func category(u uint32) int {
	n := 0
	for u > 0xff {
		n += 8
		u >>= 8
	}
	return n + int(bitCount[u])
}

// Marker byte constants, section B.1 of the JPEG standard.
const (
	sof0Marker = 0xc0 // Start Of Frame (Baseline Sequential).
	dhtMarker  = 0xc4 // Define Huffman Table.
	soiMarker  = 0xd8 // Start Of Image.
	eoiMarker  = 0xd9 // End Of Image.
	sosMarker  = 0xda // Start Of Scan.
	dqtMarker  = 0xdb // Define Quantization Table.
	app0Marker = 0xe0 // JFIF APP0.
	app1Marker = 0xe1 // EXIF / XMP APP1.
	app2Marker = 0xe2 // ICC profile APP2.
)

// maxComponents is the maximum number of color components this encoder
// supports: Y, Cb, Cr.
const maxComponents = 3
