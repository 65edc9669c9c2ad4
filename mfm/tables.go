package mfm

// mfmTab[b] is the 16-bit MFM cell pattern for data byte b, assuming the bit
// immediately preceding this byte was a 0. Bits alternate clock,data from the
// MSB down (bit15=clock for data bit7, bit14=data bit7, ..., bit1=clock for
// data bit0, bit0=data bit0), so bits at even positions from the LSB
// (0x5555) are the data bits and the odd positions are the clock bits.
//
// Because the table assumes a leading 0, the caller must mask off the top
// (clock) bit whenever the previous emitted bit was a 1 — see EmitRaw,
// the classic "emit_raw(r & ~(pr<<15))" trick.
var mfmTab [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		var cell uint16
		prevBit := 0
		for bitpos := 7; bitpos >= 0; bitpos-- {
			dataBit := (i >> uint(bitpos)) & 1
			clockBit := 1
			if prevBit == 1 || dataBit == 1 {
				clockBit = 0
			}
			cell = (cell << 1) | uint16(clockBit)
			cell = (cell << 1) | uint16(dataBit)
			prevBit = dataBit
		}
		mfmTab[i] = cell
	}
}

// rbit32 reverses the bit order of the low 8 bits of x, returning the result
// in the top 8 bits (mirroring the firmware's _rbit32(x) >> 24 idiom used to
// read an HFE bitcell byte LSB-first).
func rbit32(x byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= x & 1
		x >>= 1
	}
	return r
}

// RBit8 exposes the bit-reversal helper to other packages (HFE demux uses
// the identical table-free reversal hfe.bitReverse performs).
func RBit8(x byte) byte { return rbit32(x) }

// Table exposes the raw per-byte MFM cell, unmasked by any previous-bit
// state. The fm package reuses this table to synthesize its own sync
// words: fm_sync(data, clk) = (Table(clk)&0x5555)<<1 | (Table(data)&0x5555).
func Table(b byte) uint16 { return mfmTab[b] }

// EmitRaw returns the 16-bit raw MFM cell for dataByte given the last bit
// emitted by the previous cell (0 or 1), and the new last-bit state to pass
// to the next call. This maintains the invariant that adjacent raw 16-bit
// cells never produce two consecutive 1-bits across the boundary.
func EmitRaw(prevLastBit byte, dataByte byte) (cell uint16, lastBit byte) {
	cell = mfmTab[dataByte]
	if prevLastBit != 0 {
		cell &= 0x7fff
	}
	return cell, dataByte & 1
}
