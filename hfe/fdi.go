package hfe

import (
	"fmt"
	"os"

	"github.com/sergev/fluxcore/geometry"
)

// ReadFDI reads a PC-98 FDI image: a 32-byte header of eight little-endian
// u32 fields (density, header size, body size, sector size, nr_secs,
// nr_sides, cyls) followed by raw sector payloads.
func ReadFDI(filename string) (*Disk, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	g, ok := geometry.ParsePC98FDI(data)
	if !ok {
		return nil, fmt.Errorf("not a valid PC-98 FDI image: %s", filename)
	}
	return buildDiskFromGeometry(g, data), nil
}

// WriteFDI decodes disk's MFM-encoded tracks back into sector payloads
// (at the Disk's sector size, via extractSectorPayloads) and prepends a
// 32-byte FDI header. The header always records 512-byte sectors and the
// 2DD density code, so only the 512-byte-sector PC-98 shape round-trips;
// a Disk with 1024-byte sectors is still written, with a header that does
// not describe its payload.
func WriteFDI(filename string, disk *Disk) error {
	payload, err := extractSectorPayloads(disk)
	if err != nil {
		return err
	}
	nrSides := 1
	if disk.Tracks[0].Side1 != nil {
		nrSides = 2
	}
	nrSectors := len(payload) / (len(disk.Tracks) * nrSides * 512)

	hdr := make([]byte, 32)
	putLE32(hdr[4:8], 0x30) // density: 2DD, 300RPM/gap3=84
	putLE32(hdr[8:12], 32)  // header_size
	putLE32(hdr[12:16], uint32(len(payload)))
	putLE32(hdr[16:20], 512)
	putLE32(hdr[20:24], uint32(nrSectors))
	putLE32(hdr[24:28], uint32(nrSides))
	putLE32(hdr[28:32], uint32(len(disk.Tracks)))

	out := append(hdr, payload...)
	return os.WriteFile(filename, out, 0o644)
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
