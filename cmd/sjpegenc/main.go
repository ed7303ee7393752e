// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sjpegenc encodes an input image into an optimized baseline JPEG.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	"github.com/dlecorfec/sjpeg"
)

func main() {
	input := flag.String("i", "", "input image path (png/jpeg/gif)")
	output := flag.String("o", "", "output JPEG path")
	quality := flag.Int("quality", sjpeg.DefaultQuality, "quality 0..100, ignored if -target-size or -target-psnr is set")
	trellis := flag.Bool("trellis", false, "enable trellis quantization")
	targetSize := flag.Int("target-size", 0, "search for this output size in bytes")
	targetPSNR := flag.Float64("target-psnr", 0, "search for this PSNR in dB")
	passes := flag.Int("passes", 8, "maximum dichotomy passes")
	verbose := flag.Bool("v", false, "log diagnostics to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "usage: sjpegenc -i in.png -o out.jpg")
		os.Exit(2)
	}

	if err := run(logger, *input, *output, *quality, *trellis, *targetSize, *targetPSNR, *passes); err != nil {
		logger.Error("encode failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, inPath, outPath string, quality int, trellis bool, targetSize int, targetPSNR float64, passes int) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decoding input: %w", err)
	}
	logger.Debug("decoded input", "format", format, "bounds", img.Bounds())

	p := sjpeg.NewEncodeParams(quality)
	p.UseTrellis = trellis
	switch {
	case targetSize > 0:
		p.TargetMode = sjpeg.TargetSize
		p.TargetValue = float64(targetSize)
		p.Passes = passes
	case targetPSNR > 0:
		p.TargetMode = sjpeg.TargetPSNR
		p.TargetValue = targetPSNR
		p.Passes = passes
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	res, err := sjpeg.Encode(out, img, p)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	logger.Info("encoded", "size", res.Size, "psnr", res.PSNR, "converged", res.Converged)
	return nil
}
