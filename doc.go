// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sjpeg implements the quality-per-byte optimization core of a
// baseline JPEG encoder: fixed-point quantization, an adaptive quantization
// matrix analyzer, a two-pass length-limited Huffman optimizer, a trellis
// quantizer, and a dichotomy controller for target-size or target-PSNR
// convergence.
//
// The package does not decode images, perform RGB-to-YUV color conversion
// beyond a plain (non-"sharp") 4:2:0/4:4:4 sampler, or support progressive
// or arithmetic-coded JPEG. It produces baseline sequential JFIF streams
// only.
package sjpeg
