// Package track computes the per-track constants derived from a Geometry:
// the rotational sector map, byte offsets into the backing image, bitcell
// track length, and data-rate class used by the MFM/FM encoders.
package track

import "github.com/sergev/fluxcore/geometry"

// Layout holds the derived, per-track state: the rotational sector map and
// the sizing constants the encoder/decoder state machines key off.
type Layout struct {
	Cyl  int
	Side int

	// SecMap[slot] is the logical sector id written in rotational slot
	// `slot`, a permutation of [SecBase, SecBase+NrSectors).
	SecMap []int

	TrackLenBc   int // bitcells per revolution
	TicksPerCell int
	WriteBcTicks int
	DataRateKbps int

	Idx1Sz    int // idx_sz: pre-sector-0 gap size in bytes
	IdamSz    int
	DamSzPre  int
	DamSzPost int
	EncSecSz  int // total encoded bytes per sector (IDAM+DAM+data+gaps)

	// Gap4a is the effective post-index gap: the Geometry's value, or 0
	// when sizing had to drop it to fit the standard revolution.
	Gap4a int

	LongTrack bool
}

// sysclkUs converts a microsecond count to emulator system-clock ticks, at
// the fixed 36MHz FLOPPYEMUFREQ the hfe package already defines.
func sysclkUs(us int) int { return us * (36000000 / 1000000) }

// ByteOffset returns the byte offset of (cyl, side) sector data within an
// IMG-family file, covering the three persisted layouts this module
// supports: plain interleaved, interleaved-swap-sides, and
// sequential-reverse-side1.
func ByteOffset(g geometry.Geometry, cyl, side int) int64 {
	trkLen := int64(g.NrSectors) * int64(g.SecSize)
	switch g.Layout {
	case geometry.LayoutInterleavedSwapSides:
		s := side ^ (g.NrSides - 1)
		return g.BaseOff + (int64(cyl)*int64(g.NrSides)+int64(s))*trkLen
	case geometry.LayoutSequentialReverseSide1:
		if side == 0 {
			return g.BaseOff + int64(cyl)*trkLen
		}
		return g.BaseOff + int64(g.NrCyls)*trkLen + int64(g.NrCyls-1-cyl)*trkLen
	default: // LayoutInterleaved
		return g.BaseOff + (int64(cyl)*int64(g.NrSides)+int64(side))*trkLen
	}
}

// SectorMap computes the rotational→logical sector permutation for one
// track from interleave and skew: a permutation of
// [base, base+nr_sectors). cylOrTrack is the cylinder (if SkewCylsOnly)
// or physical track number used to rotate the starting point.
func SectorMap(g geometry.Geometry, side int, cylOrTrack int) []int {
	n := g.NrSectors
	base := g.SecBase[side]

	start := 0
	if g.Skew != 0 {
		start = (cylOrTrack * g.Skew) % n
	}

	occupied := make([]bool, n)
	order := make([]int, n)
	slot := start
	for logical := 0; logical < n; logical++ {
		for occupied[slot] {
			slot = (slot + 1) % n
		}
		order[slot] = logical
		occupied[slot] = true
		slot = (slot + g.Interleave) % n
	}

	out := make([]int, n)
	for i, logical := range order {
		out[i] = base + logical
	}
	return out
}

// New computes a Layout for (cyl, side) from a resolved Geometry, following
// the standard MFM sizing rules (FM uses the same shape with its own gap
// constants, selected by Geometry.Encoding in the caller).
func New(g geometry.Geometry, cyl, side int) Layout {
	l := Layout{
		Cyl:    cyl,
		Side:   side,
		SecMap: SectorMap(g, side, cylOrTrackFor(g, cyl, side)),
	}

	if g.Encoding == geometry.EncodingAmigaMFM {
		// Amiga framing: a 64-byte lead-in, then per sector a 15-byte
		// sync+tag, 3 ident bytes, a 16-byte label, two 4-byte checksums,
		// the odd/even data split, and a 24-byte gap. Slightly over the
		// standard DD revolution, handled by the long-track rule.
		l.Idx1Sz = 64
		l.EncSecSz = 66 + g.SecSize

		trackLenRaw := 16 * (l.Idx1Sz + g.NrSectors*l.EncSecSz)
		rate, trackLenBc := selectDataRate(trackLenRaw, g.RPM)
		l.DataRateKbps = rate
		if trackLenBc < trackLenRaw {
			trackLenBc = trackLenRaw + 100
			l.LongTrack = true
		}
		l.TrackLenBc = roundUp32(trackLenBc)
		l.WriteBcTicks = sysclkUs(500) / rate
		l.TicksPerCell = l.WriteBcTicks * 16
		return l
	}

	gapSync, gap1 := 12, 50
	if g.Encoding == geometry.EncodingFM {
		// FM marks are a single sync cell, not a 3xA1 run, so the IDAM is
		// sync + 5 mark/id bytes and the DAM preamble is sync + 1.
		gapSync = 6
		l.IdamSz = gapSync + 5 + 2 + g.Gap2 + g.PostCRCSyncs
		l.DamSzPre = gapSync + 1
	} else {
		l.IdamSz = min(g.Gap3, gapSync) + 8 + 2 + g.Gap2 + g.PostCRCSyncs
		l.DamSzPre = gapSync + 4
	}
	l.DamSzPost = 2 + g.Gap3 + g.PostCRCSyncs
	l.EncSecSz = l.IdamSz + l.DamSzPre + g.SecSize + l.DamSzPost

	l.Gap4a = g.Gap4a
	l.Idx1Sz = l.Gap4a
	if g.HasIAM {
		l.Idx1Sz += gapSync + 4 + gap1
	}

	trackLenRaw := 16 * (l.Idx1Sz + g.NrSectors*l.EncSecSz)

	rate, trackLenBc := selectDataRate(trackLenRaw, g.RPM)
	l.DataRateKbps = rate

	if trackLenBc < trackLenRaw {
		if trackLenRaw-16*l.Gap4a <= trackLenBc {
			// Eliminate the post-index gap 4a if that suffices.
			trackLenRaw -= 16 * l.Gap4a
			l.Idx1Sz -= l.Gap4a
			l.Gap4a = 0
		} else {
			// Extend the track length ("long track").
			trackLenBc = trackLenRaw + 100
			l.LongTrack = true
		}
	}
	l.TrackLenBc = roundUp32(trackLenBc)

	l.WriteBcTicks = sysclkUs(500) / rate
	l.TicksPerCell = l.WriteBcTicks * 16

	return l
}

// cylOrTrackFor returns the value the skew multiplies: the bare
// cylinder when a dialect's skew is cylinder-only (e.g. TI-99), or the
// physical track number (cyl*nr_sides+side) otherwise, so skew also turns
// with head changes on dialects that want that (e.g. TRDOS-style skew).
func cylOrTrackFor(g geometry.Geometry, cyl, side int) int {
	if g.SkewCylsOnly {
		return cyl
	}
	return cyl*g.NrSides + side
}

// selectDataRate picks the smallest data rate class whose size window
// admits the raw (unrounded) track, and returns that class's standard
// revolution length in bitcells. The caller applies the
// drop-gap4a-then-long-track fallback when even the chosen class's
// standard length is too short.
func selectDataRate(trackLenRaw, rpm int) (rateKbps int, standardBc int) {
	i := 0
	for ; i < 3; i++ { // SD, DD, HD; ED is the fallthrough
		maxLen := (50000*300/rpm)<<uint(i) + 5000
		if trackLenRaw < maxLen {
			break
		}
	}
	rate := 250 << uint(i)
	return rate, rate * 200 * 300 / rpm
}

func roundUp32(n int) int {
	return (n + 31) &^ 31
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
