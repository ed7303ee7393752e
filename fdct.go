// Copyright 2017 Google Inc.
// Adapted for this module; see DESIGN.md for provenance.

package sjpeg

// fdct is the integer forward DCT external collaborator named in
// SPEC_FULL.md 6: an in-place, natural-order 8x8 transform whose output is
// scaled by 16 (AC_BITS). SPEC_FULL.md 11.2 treats color conversion and the
// fDCT itself as external collaborators the quantization pipeline consumes;
// this is a reference implementation ported from the AAN-style fixed-point
// transform, since the pack's dlecorfec-progjpeg teacher never carried its
// own fdct.go companion.
func fdct(b *block) {
	var buf [blockSize]int32
	for i := range b {
		buf[i] = int32(b[i])
	}
	columnDCT(&buf)
	rowDCT(buf[0*8:], &kTable04)
	rowDCT(buf[1*8:], &kTable17)
	rowDCT(buf[2*8:], &kTable26)
	rowDCT(buf[3*8:], &kTable35)
	rowDCT(buf[4*8:], &kTable04)
	rowDCT(buf[5*8:], &kTable35)
	rowDCT(buf[6*8:], &kTable26)
	rowDCT(buf[7*8:], &kTable17)
	for i := range b {
		b[i] = int16(buf[i])
	}
}

// Cosine tables: C(k) = cos(k*pi/16)/sqrt(2), k = 1..7, in 15-bit fixed
// point; rows 1/7, 2/6, 3/5 are pre-multiplied by 2*C(1), 2*C(2), 2*C(3)
// respectively for the second (row) pass.
var (
	kTable04 = [7]int32{22725, 21407, 19266, 16384, 12873, 8867, 4520}
	kTable17 = [7]int32{31521, 29692, 26722, 22725, 17855, 12299, 6270}
	kTable26 = [7]int32{29692, 27969, 25172, 21407, 16819, 11585, 5906}
	kTable35 = [7]int32{26722, 25172, 22654, 19266, 15137, 10426, 5315}
)

const (
	fdctTan1   = 13036  // tan(pi/16)
	fdctTan2   = 27146  // tan(2*pi/16) = sqrt(2)-1
	fdctTan3m1 = -21746 // tan(3*pi/16)-1
	fdct2Sqrt2 = 23170  // 1/(2*sqrt(2))
)

func correctLSB(a *int32) { *a++ }

// columnDCT is the vertical pass, operating on all 8 columns of an 8x8
// natural-order block in place.
func columnDCT(buf *[blockSize]int32) {
	for i := 0; i < 8; i++ {
		col := buf[i:]
		m0 := col[0*8]
		m2 := col[2*8]
		m7 := col[7*8]
		m5 := col[5*8]
		m0, m7 = m0-m7, m0+m7
		m2, m5 = m2-m5, m2+m5

		m3 := col[3*8]
		m4 := col[4*8]
		m3, m4 = m3-m4, m3+m4

		m6 := col[6*8]
		m1 := col[1*8]
		m1, m6 = m1-m6, m1+m6
		m7, m4 = m7-m4, m7+m4
		m6, m5 = m6-m5, m6+m5

		m4 <<= 3
		m5 <<= 3
		m4, m5 = m4-m5, m4+m5
		col[0*8] = m5
		col[4*8] = m4

		m7 <<= 3
		m6 <<= 3
		m3 <<= 3
		m0 <<= 3

		t4 := int32(fdctTan2)
		t5 := t4
		t4 = (t4 * m7) >> 16
		t5 = (t5 * m6) >> 16
		t4 -= m6
		t5 += m7
		col[2*8] = t5
		col[6*8] = t4

		t6 := int32(fdct2Sqrt2)
		m2 = m2<<3 + 1
		m1 = m1<<3 + 1
		m1, m2 = m1-m2, m1+m2
		m2 = (m2 * t6) >> 16
		m1 = (m1 * t6) >> 16
		m3, m1 = m3-m1, m3+m1
		m0, m2 = m0-m2, m0+m2

		t4 = fdctTan3m1
		t5 = fdctTan1
		t7 := m3
		t6 = m1
		m3 = (m3 * t4) >> 16
		m1 = (m1 * t5) >> 16

		m3 += t7
		m1 += m2
		correctLSB(&m1)
		correctLSB(&m3)
		t4 = (t4 * m0) >> 16
		t5 = (t5 * m2) >> 16
		t4 += m0
		m0 -= m3
		t7 += t4
		t5 -= t6

		col[1*8] = m1
		col[3*8] = m0
		col[5*8] = t7
		col[7*8] = t5
	}
}

// rowDCT is the horizontal pass over one row, using the row-specific
// pre-scaled cosine table.
func rowDCT(row []int32, table *[7]int32) {
	a0, b0 := row[0]+row[7], row[0]-row[7]
	a1, b1 := row[1]+row[6], row[1]-row[6]
	a2, b2 := row[2]+row[5], row[2]-row[5]
	a3, b3 := row[3]+row[4], row[3]-row[4]

	c2, c4, c6 := table[1], table[3], table[5]
	c0, c1 := a0+a3, a0-a3
	c2b, c3 := a1+a2, a1-a2

	row[0] = descale(c4 * (c0 + c2b))
	row[4] = descale(c4 * (c0 - c2b))
	row[2] = descale(c2*c1 + c6*c3)
	row[6] = descale(c6*c1 - c2*c3)

	c1v, c3v, c5v, c7v := table[0], table[2], table[4], table[6]
	row[1] = descale(c1v*b0 + c3v*b1 + c5v*b2 + c7v*b3)
	row[3] = descale(c3v*b0 - c7v*b1 - c1v*b2 - c5v*b3)
	row[5] = descale(c5v*b0 - c1v*b1 + c7v*b2 + c3v*b3)
	row[7] = descale(c7v*b0 - c5v*b1 + c3v*b2 - c1v*b3)
}

func descale(a int32) int32 { return a >> 16 }
