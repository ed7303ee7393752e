// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

import (
	"crypto/md5"
	"fmt"
)

const (
	maxAPP1ChunkLen = 65533 // marker length field is 16-bit, minus the 2-byte length itself
	maxICCPChunkLen = 65519
	maxXMPMainLen   = 65503
)

func writeMarkerHeader(w *bitWriter, marker byte, length int) {
	w.putByte(0xff)
	w.putByte(marker)
	w.putByte(byte(length >> 8))
	w.putByte(byte(length & 0xff))
}

// writeSOI writes the Start Of Image marker, mandatory as the first two
// bytes of every JPEG stream.
func writeSOI(w *bitWriter) {
	w.putByte(0xff)
	w.putByte(soiMarker)
}

// writeAPP0 writes the mandatory JFIF APP0 segment: version 1.01, no
// density units, 1:1 aspect ratio, no embedded thumbnail.
func writeAPP0(w *bitWriter) {
	writeMarkerHeader(w, app0Marker, 16)
	w.putBytes([]byte("JFIF\x00"))
	w.putByte(1) // version major
	w.putByte(1) // version minor
	w.putByte(0) // units: none
	w.putByte(0)
	w.putByte(1) // X density
	w.putByte(0)
	w.putByte(1) // Y density
	w.putByte(0) // thumbnail width
	w.putByte(0) // thumbnail height
}

// writeAPPMarkers writes a caller-supplied blob of already-formed APP
// marker segments verbatim, per SPEC_FULL.md 6.
func writeAPPMarkers(w *bitWriter, payload []byte) {
	if len(payload) == 0 {
		return
	}
	w.putBytes(payload)
}

// writeEXIF writes an APP1 segment carrying an "Exif\0\0"-prefixed payload.
func writeEXIF(w *bitWriter, exif []byte) error {
	if len(exif) == 0 {
		return nil
	}
	if len(exif)+8 > maxAPP1ChunkLen+2 {
		return fmt.Errorf("EXIF payload of %d bytes: %w", len(exif), ErrOversizeMetadata)
	}
	writeMarkerHeader(w, app1Marker, 2+6+len(exif))
	w.putBytes([]byte("Exif\x00\x00"))
	w.putBytes(exif)
	return nil
}

// writeICCP writes one or more APP2 segments carrying an
// "ICC_PROFILE\0"-prefixed, sequence-numbered, chunked ICC color profile.
func writeICCP(w *bitWriter, iccp []byte) error {
	if len(iccp) == 0 {
		return nil
	}
	numChunks := (len(iccp) + maxICCPChunkLen - 1) / maxICCPChunkLen
	if numChunks > 255 {
		return fmt.Errorf("ICC profile split into %d chunks: %w", numChunks, ErrTooManyICCPChunks)
	}
	for i := 0; i < numChunks; i++ {
		start := i * maxICCPChunkLen
		end := start + maxICCPChunkLen
		if end > len(iccp) {
			end = len(iccp)
		}
		chunk := iccp[start:end]
		writeMarkerHeader(w, app2Marker, 2+12+2+len(chunk))
		w.putBytes([]byte("ICC_PROFILE\x00"))
		w.putByte(byte(i + 1))
		w.putByte(byte(numChunks))
		w.putBytes(chunk)
	}
	return nil
}

const xmpMainNS = "http://ns.adobe.com/xap/1.0/\x00"
const xmpExtNS = "http://ns.adobe.com/xmp/extension/\x00"

// md5Func is the hashing function used to derive the Extended-XMP GUID;
// injectable for testing, defaulting to crypto/md5 per SPEC_FULL.md 11.1
// (sjpeg's own md5sum.h is a bespoke, non-library reimplementation with no
// grounded equivalent in the pack, so the standard library is used here
// instead of hand-rolling one).
var md5Func = md5.Sum

// writeXMP writes an APP1 XMP segment, splitting into a main packet and an
// Extended-XMP APP1 segment (per Adobe's XMP spec) when the payload exceeds
// maxXMPMainLen. The main packet's `xmpNote:HasExtendedXMP` attribute value
// is set to the uppercase hex MD5 GUID of the full payload.
func writeXMP(w *bitWriter, xmp []byte) error {
	if len(xmp) == 0 {
		return nil
	}
	if len(xmp) <= maxXMPMainLen {
		writeMarkerHeader(w, app1Marker, 2+len(xmpMainNS)+len(xmp))
		w.putBytes([]byte(xmpMainNS))
		w.putBytes(xmp)
		return nil
	}

	sum := md5Func(xmp)
	guid := fmt.Sprintf("%X", sum[:])
	main, err := insertExtendedXMPGUID(xmp[:maxXMPMainLen], guid)
	if err != nil {
		return err
	}
	if len(main)+len(xmpMainNS) > maxAPP1ChunkLen {
		return fmt.Errorf("XMP main packet of %d bytes: %w", len(main), ErrOversizeMetadata)
	}
	writeMarkerHeader(w, app1Marker, 2+len(xmpMainNS)+len(main))
	w.putBytes([]byte(xmpMainNS))
	w.putBytes(main)

	return writeXMPExtended(w, xmp, guid)
}

// insertExtendedXMPGUID locates the xmpNote:HasExtendedXMP attribute in the
// truncated main packet and rewrites its value to guid, matching sjpeg's
// requirement that the tag be present verbatim in the caller-supplied XMP.
func insertExtendedXMPGUID(main []byte, guid string) ([]byte, error) {
	const tag = `xmpNote:HasExtendedXMP="`
	idx := indexOf(main, []byte(tag))
	if idx < 0 {
		return nil, ErrXMPGUIDNotFound
	}
	valStart := idx + len(tag)
	valEnd := indexOfByte(main, valStart, '"')
	if valEnd < 0 {
		return nil, ErrXMPGUIDNotFound
	}
	out := make([]byte, 0, len(main))
	out = append(out, main[:valStart]...)
	out = append(out, guid...)
	out = append(out, main[valEnd:]...)
	return out, nil
}

// writeXMPExtended writes the Extended-XMP APP1 segment(s): GUID (32 hex
// chars), full payload length, and offset, chunked to the APP1 marker size
// limit as required by the Adobe XMP spec.
func writeXMPExtended(w *bitWriter, full []byte, guid string) error {
	const perChunk = maxAPP1ChunkLen - len(xmpExtNS) - 32 - 4 - 4
	total := len(full)
	for offset := 0; offset < total; offset += perChunk {
		end := offset + perChunk
		if end > total {
			end = total
		}
		chunk := full[offset:end]
		length := len(xmpExtNS) + 32 + 4 + 4 + len(chunk)
		writeMarkerHeader(w, app1Marker, 2+length)
		w.putBytes([]byte(xmpExtNS))
		w.putBytes([]byte(guid))
		w.putByte(byte(total >> 24))
		w.putByte(byte(total >> 16))
		w.putByte(byte(total >> 8))
		w.putByte(byte(total))
		w.putByte(byte(offset >> 24))
		w.putByte(byte(offset >> 16))
		w.putByte(byte(offset >> 8))
		w.putByte(byte(offset))
		w.putBytes(chunk)
	}
	return nil
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

func indexOfByte(haystack []byte, from int, b byte) int {
	for i := from; i < len(haystack); i++ {
		if haystack[i] == b {
			return i
		}
	}
	return -1
}

// writeDQT writes the Define Quantization Table marker for one or two
// tables (luma, and optionally chroma).
func writeDQT(w *bitWriter, matrices ...quantMatrix) {
	markerlen := 2 + len(matrices)*(1+blockSize)
	writeMarkerHeader(w, dqtMarker, markerlen)
	for i, m := range matrices {
		w.putByte(byte(i))
		// The JPEG standard transmits quantization table entries in
		// zig-zag order, even though quantMatrix itself is natural-order.
		for zig := 0; zig < blockSize; zig++ {
			w.putByte(m[unzig[zig]])
		}
	}
}

// writeSOF writes the Start Of Frame (Baseline Sequential) marker.
// samplingFactors[i] packs H<<4|V for component i.
func writeSOF(w *bitWriter, width, height, nComponent int, quantIdx []byte, samplingFactors []byte) {
	markerlen := 8 + 3*nComponent
	writeMarkerHeader(w, sof0Marker, markerlen)
	w.putByte(8) // 8-bit precision
	w.putByte(byte(height >> 8))
	w.putByte(byte(height))
	w.putByte(byte(width >> 8))
	w.putByte(byte(width))
	w.putByte(byte(nComponent))
	for i := 0; i < nComponent; i++ {
		w.putByte(byte(i + 1))
		w.putByte(samplingFactors[i])
		w.putByte(quantIdx[i])
	}
}

// writeDHT writes the Define Huffman Table marker for the four canonical
// tables (DC/AC x luma/chroma), or the first two only for grayscale.
func writeDHT(w *bitWriter, nComponent int, tables []*huffmanTable) {
	classAndID := []byte{0x00, 0x10, 0x01, 0x11}
	n := len(tables)
	if nComponent == 1 {
		n = 2
		if n > len(tables) {
			n = len(tables)
		}
	}
	markerlen := 2
	for i := 0; i < n; i++ {
		markerlen += 1 + 16 + len(tables[i].syms)
	}
	writeMarkerHeader(w, dhtMarker, markerlen)
	for i := 0; i < n; i++ {
		w.putByte(classAndID[i])
		w.putBytes(tables[i].bits[:])
		w.putBytes(tables[i].syms)
	}
}

// writeSOS writes the Start Of Scan header. componentIDs and dcAcTableIDs
// (packed DC<<4|AC per component) follow the SOF component order.
func writeSOS(w *bitWriter, nComponent int, dcAcTableIDs []byte) {
	markerlen := 6 + 2*nComponent
	writeMarkerHeader(w, sosMarker, markerlen)
	w.putByte(byte(nComponent))
	for i := 0; i < nComponent; i++ {
		w.putByte(byte(i + 1))
		w.putByte(dcAcTableIDs[i])
	}
	w.putByte(0)  // spectral selection start
	w.putByte(63) // spectral selection end
	w.putByte(0)  // successive approximation
}

// writeEOI writes the End Of Image marker.
func writeEOI(w *bitWriter) {
	w.putByte(0xff)
	w.putByte(eoiMarker)
}
