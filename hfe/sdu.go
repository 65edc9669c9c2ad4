package hfe

import (
	"fmt"
	"os"

	"github.com/sergev/fluxcore/geometry"
)

// ReadSDU reads a SABDU image: a 46-byte header giving (cyls, heads,
// sectors/track) for one of the standard 180k-2.88M PC shapes, followed by
// raw 512-byte sector payloads.
func ReadSDU(filename string) (*Disk, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	g, ok := geometry.ParseSDU(data)
	if !ok {
		return nil, fmt.Errorf("not a valid SDU image: %s", filename)
	}
	return buildDiskFromGeometry(g, data), nil
}

// WriteSDU decodes disk's MFM-encoded tracks back into sector payloads (the
// shared extractSectorPayloads path, at the Disk's sector size) and prepends
// a 46-byte SABDU header, which always records 512-byte sectors — the SDU
// format's only supported sector size.
func WriteSDU(filename string, disk *Disk) error {
	payload, err := extractSectorPayloads(disk)
	if err != nil {
		return err
	}
	nrSides := 1
	if disk.Tracks[0].Side1 != nil {
		nrSides = 2
	}

	hdr := make([]byte, 46)
	copy(hdr[0:21], []byte("fluxcore"))
	// max.{c,h,s} at offset 30/32/34; used.{c,h,s} (offset 36/38/40) left
	// zero since this writer always produces a full, unformatted image.
	putLE16(hdr[30:32], uint16(len(disk.Tracks)))
	putLE16(hdr[32:34], uint16(nrSides))
	putLE16(hdr[34:36], uint16(len(payload)/(len(disk.Tracks)*nrSides*512)))
	putLE16(hdr[42:44], 512)

	out := append(hdr, payload...)
	return os.WriteFile(filename, out, 0o644)
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
