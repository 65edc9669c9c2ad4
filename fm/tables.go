// Package fm implements IBM/ISO single-density FM encoding: the same
// IDAM/DAM/gap shape as the mfm package, but with a different clock rule
// (every cell carries a clock pulse) and different gap/sync constants.
package fm

import "github.com/sergev/fluxcore/mfm"

func mfmTable(b byte) uint16 { return mfm.Table(b) }

// fmTab[b] is the 16-bit FM cell for data byte b: unlike MFM, the clock bit
// is unconditionally 1 in every cell, so there is no previous-bit
// dependency to track between bytes.
var fmTab [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		var cell uint16
		for bitpos := 7; bitpos >= 0; bitpos-- {
			dataBit := (i >> uint(bitpos)) & 1
			cell = (cell << 1) | 1
			cell = (cell << 1) | uint16(dataBit)
		}
		fmTab[i] = cell
	}
}

// Gap and sync sizing constants for FM-encoded tracks.
const (
	GapSync = 6
	Gap2    = 11
	Gap4a   = 16
	GapFill = 0xFF

	DataRateKbps = 250

	markClock = 0xC7 // clock pattern shared by IDAM/DAM/DDAM marks
)

// Gap3ForSecNo is the default GAP_3 table keyed by sec_no.
var gap3Table = [...]int{27, 42, 58, 138, 138, 138, 138}

func Gap3ForSecNo(secNo int) int {
	if secNo < len(gap3Table) {
		return gap3Table[secNo]
	}
	return 138
}

// sync synthesizes the FM address-mark cell for mark byte data under the
// standard clock pattern: fm_sync(data, clk) = (mfmtab[clk]&0x5555)<<1 |
// (mfmtab[data]&0x5555), reusing the mfm package's byte→cell table.
func sync(data byte) uint16 {
	return (mfmTable(markClock)&0x5555)<<1 | (mfmTable(data) & 0x5555)
}
