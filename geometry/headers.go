package geometry

import "encoding/binary"

// Embedded-header dialects: unlike the template-matching hosts in
// templates.go, these formats carry their own geometry fields in a fixed
// binary header at the start of the file, little-endian throughout. Each
// parser reads the header directly out of the full image, validates it, and
// returns a Geometry with BaseOff set past the header so the rest of the
// codec addresses sector payloads the same way as any other IMG dialect.
// Grounded in FlashFloppy's vdk_open/jvc_open/sdu_open/pc98fdi_open
// (original_source/src/image/img.c).

// ParseVDK recognizes the VDK (PC-Dragon emulator) header: 2-byte "dk"
// signature, u16 header length, 4 reserved bytes, cyls, heads, flags,
// compression. Sector geometry (256-byte sectors, 18/track, interleave 2,
// base id 1) is fixed by the format, not stored in the header.
func ParseVDK(data []byte) (Geometry, bool) {
	const hdrLen = 12
	if len(data) < hdrLen || data[0] != 'd' || data[1] != 'k' {
		return Geometry{}, false
	}
	hlen := binary.LittleEndian.Uint16(data[2:4])
	if hlen < 12 {
		return Geometry{}, false
	}
	cyls := int(data[8])
	heads := int(data[9])
	if heads != 1 && heads != 2 {
		return Geometry{}, false
	}

	g := Geometry{
		Host:         HostGeneric,
		Encoding:     EncodingMFM,
		NrCyls:       cyls,
		NrSides:      heads,
		NrSectors:    18,
		SecNo:        1, // 256-byte sectors
		SecSize:      256,
		Interleave:   2,
		SecBase:      [2]int{1, 1},
		HasIAM:       true,
		Layout:       LayoutInterleaved,
		RPM:          300,
		DataRateKbps: 250,
		Gap2:         22,
		Gap3:         20,
		Gap4a:        54,
		BaseOff:      int64(hlen),
	}
	return g, true
}

// ParseJVC recognizes the JVC (Jeff Vavasour Coco / Dragon) header: zero to
// 255 bytes, present only when (file size mod 256) != 0. Header fields, when
// present, are {spt, sides, ssize_code, sec_id, attr}; absent fields default
// to {18, 1, 1, 1, 0}, matching RSDOS defaults.
func ParseJVC(data []byte, size int64) (Geometry, bool) {
	baseOff := size & 255
	spt, sides, secNo, secID, attr := 18, 1, 1, 1, byte(0)
	if baseOff > 0 {
		hdr := data
		if int64(len(hdr)) > baseOff {
			hdr = hdr[:baseOff]
		}
		if len(hdr) >= 1 {
			spt = int(hdr[0])
		}
		if len(hdr) >= 2 {
			sides = int(hdr[1])
		}
		if len(hdr) >= 3 {
			secNo = int(hdr[2]) & 3
		}
		if len(hdr) >= 4 {
			secID = int(hdr[3])
		}
		if len(hdr) >= 5 {
			attr = hdr[4]
		}
	}
	if attr != 0 || (sides != 1 && sides != 2) || spt == 0 {
		return Geometry{}, false
	}

	secSize := 128 << uint(secNo)
	bpc := secSize * spt * sides
	if bpc == 0 {
		return Geometry{}, false
	}
	payload := size - baseOff
	cyls := int(payload / int64(bpc))
	if cyls >= 88 && sides == 1 {
		sides = 2
		cyls /= 2
		bpc *= 2
	}
	if int(payload%int64(bpc)) >= secSize {
		cyls++
	}

	g := Geometry{
		Host:         HostGeneric,
		Encoding:     EncodingMFM,
		NrCyls:       cyls,
		NrSides:      sides,
		NrSectors:    spt,
		SecNo:        secNo,
		SecSize:      secSize,
		Interleave:   3, // RSDOS likes a 3:1 interleave
		SecBase:      [2]int{secID, secID},
		HasIAM:       true,
		Layout:       LayoutInterleaved,
		RPM:          300,
		DataRateKbps: 250,
		Gap2:         22,
		Gap3:         20,
		Gap4a:        54,
		BaseOff:      baseOff,
	}
	return g, true
}

// ParseSDU recognizes the SABDU header: a 46-byte struct whose max.{c,h,s}
// fields give (cyls, heads, sectors/track); accepts only the standard
// 180k/360k/720k/1.44M/2.88M PC shapes the format restricts itself to.
func ParseSDU(data []byte) (Geometry, bool) {
	const hdrLen = 46
	if len(data) < hdrLen {
		return Geometry{}, false
	}
	// app[21] + ver[5] + flags(2) + type(2) = 30 bytes precede max.{c,h,s}.
	cyls := int(binary.LittleEndian.Uint16(data[30:32]))
	heads := int(binary.LittleEndian.Uint16(data[32:34]))
	secs := int(binary.LittleEndian.Uint16(data[34:36]))

	if (cyls != 40 && cyls != 80) ||
		(heads != 1 && heads != 2) ||
		(secs != 9 && secs != 18 && secs != 36) {
		return Geometry{}, false
	}

	g := Geometry{
		Host:         HostGeneric,
		Encoding:     EncodingMFM,
		NrCyls:       cyls,
		NrSides:      heads,
		NrSectors:    secs,
		SecNo:        2, // 512-byte sectors
		SecSize:      512,
		Interleave:   1,
		SecBase:      [2]int{1, 1},
		HasIAM:       true,
		Layout:       LayoutInterleaved,
		RPM:          300,
		DataRateKbps: 500,
		Gap2:         22,
		Gap3:         84,
		Gap4a:        80,
		BaseOff:      hdrLen,
	}
	return g, true
}

// ParsePC98FDI recognizes the PC-98 FDI header: a fixed 32-byte block of
// eight little-endian u32 fields (zero, density, header_size,
// image_body_size, sector_size_bytes, nr_secs, nr_sides, cyls). density
// 0x30 selects 300RPM/gap3=84 (2DD); anything else selects 360RPM/gap3=116
// (2HD).
func ParsePC98FDI(data []byte) (Geometry, bool) {
	const hdrLen = 32
	if len(data) < hdrLen {
		return Geometry{}, false
	}
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(data[off : off+4]) }

	density := u32(4)
	headerSize := u32(8)
	secSizeBytes := u32(16)
	nrSecs := u32(20)
	nrSides := u32(24)
	cyls := u32(28)

	secNo := 3
	if secSizeBytes == 512 {
		secNo = 2
	}
	rpm, gap3 := 360, 116
	if density == 0x30 {
		rpm, gap3 = 300, 84
	}
	if nrSides != 1 && nrSides != 2 {
		return Geometry{}, false
	}

	g := Geometry{
		Host:         HostGeneric,
		Encoding:     EncodingMFM,
		NrCyls:       int(cyls),
		NrSides:      int(nrSides),
		NrSectors:    int(nrSecs),
		SecNo:        secNo,
		SecSize:      128 << uint(secNo),
		Interleave:   1,
		SecBase:      [2]int{1, 1},
		HasIAM:       true,
		Layout:       LayoutInterleaved,
		RPM:          rpm,
		DataRateKbps: 500,
		Gap2:         22,
		Gap3:         gap3,
		Gap4a:        80,
		BaseOff:      int64(headerSize),
	}
	return g, true
}
