package geometry

import "encoding/binary"

// bpbDisambiguate reads a PC-DOS/MSX-style BIOS Parameter Block out of the
// image's first sector and picks the candidate whose sectors-per-track and
// head count match. The 0xAA55 signature at offset 510 is mandatory for
// PC-DOS and optional for MSX.
func bpbDisambiguate(candidates []Geometry, image []byte) (Geometry, bool) {
	if len(image) < 512 {
		return Geometry{}, false
	}
	bytesPerSector := binary.LittleEndian.Uint16(image[11:13])
	secPerTrack := binary.LittleEndian.Uint16(image[24:26])
	numHeads := binary.LittleEndian.Uint16(image[26:28])
	sig := binary.LittleEndian.Uint16(image[510:512])

	hasSig := sig == 0xAA55
	for _, g := range candidates {
		if g.Host == HostPCDOS && !hasSig {
			continue
		}
		if int(bytesPerSector) != g.SecSize {
			continue
		}
		if int(secPerTrack) != g.NrSectors {
			continue
		}
		if int(numHeads) != g.NrSides {
			continue
		}
		return g, true
	}
	return Geometry{}, false
}

// vibDisambiguate recognizes the TI-99 Volume Information Block: the ASCII
// identifier "DSK" at offset 13 of sector 0, with the tracks_per_side and
// sides fields (offsets 17 and 18) telling SSDD from DSSD and DSSD80 from
// DSDD.
func vibDisambiguate(candidates []Geometry, image []byte) (Geometry, bool) {
	if len(image) < 20 || string(image[13:16]) != "DSK" {
		return Geometry{}, false
	}
	tracksPerSide := int(image[17])
	sides := int(image[18])
	for _, g := range candidates {
		if g.Host != HostTI99 {
			continue
		}
		if sides != 0 && g.NrSides != sides {
			continue
		}
		if tracksPerSide != 0 && g.NrCyls != tracksPerSide {
			continue
		}
		return g, true
	}
	return Geometry{}, false
}

// trdosDisambiguate reads the geometry byte at absolute offset 0x8E3: one
// of 0x16..0x19, each encoding a (cyls, sides) pair.
func trdosDisambiguate(candidates []Geometry, image []byte) (Geometry, bool) {
	const offset = 0x8E3
	if len(image) <= offset {
		return Geometry{}, false
	}
	b := image[offset]
	if b < 0x16 || b > 0x19 {
		return Geometry{}, false
	}
	wantCyls := 40
	if b == 0x18 || b == 0x19 {
		wantCyls = 80
	}
	wantSides := 1
	if b == 0x17 || b == 0x19 {
		wantSides = 2
	}
	for _, g := range candidates {
		if g.Host == HostTRDOS && g.NrCyls == wantCyls && g.NrSides == wantSides {
			return g, true
		}
	}
	return Geometry{}, false
}
