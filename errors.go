// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

import "errors"

// Sentinel errors, per SPEC_FULL.md 7 and 10.2. They follow
// cocosip-go-dicom-codec/codec/errors.go's pattern of package-level
// sentinels created with errors.New and checkable with errors.Is; callers
// that need extra context wrap them with fmt.Errorf("...: %w", ErrX).
//
// Dichotomy non-convergence is deliberately not one of these: per
// SPEC_FULL.md 7 it is not an error, and is surfaced instead through
// Result.Converged.
var (
	// ErrInvalidParameter covers a nil image or nil params, non-positive
	// dimensions, or a sampler needing more components than supported.
	ErrInvalidParameter = errors.New("sjpeg: invalid parameter")

	// ErrOversizeMetadata covers an EXIF or XMP main chunk exceeding the
	// APP1 payload budget.
	ErrOversizeMetadata = errors.New("sjpeg: metadata payload too large")

	// ErrTooManyICCPChunks covers an ICC profile requiring more than 255
	// APP2 chunks.
	ErrTooManyICCPChunks = errors.New("sjpeg: ICC profile requires more than 255 chunks")

	// ErrXMPGUIDNotFound covers a truncated XMP payload whose main packet
	// is missing the xmpNote:HasExtendedXMP attribute required to link it
	// to its Extended-XMP continuation.
	ErrXMPGUIDNotFound = errors.New("sjpeg: could not locate xmpNote:HasExtendedXMP tag")

	// ErrAllocationFailed is returned, wrapped, when writing the finished
	// stream to the caller's io.Writer fails; Encode then returns an empty
	// Result.
	ErrAllocationFailed = errors.New("sjpeg: buffer allocation failed")
)
