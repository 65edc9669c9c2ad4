package hfe

import (
	"fmt"
	"os"

	"github.com/sergev/fluxcore/geometry"
)

// ReadVDK reads a VDK (PC-Dragon emulator) image: a 12+ byte header
// ("dk" signature, header length, cyls, heads) followed by raw 256-byte
// sector payloads, and returns a Disk whose tracks hold the on-the-fly
// MFM-encoded bitstream, exactly like ReadIMG.
func ReadVDK(filename string) (*Disk, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	g, ok := geometry.ParseVDK(data)
	if !ok {
		return nil, fmt.Errorf("not a valid VDK image: %s", filename)
	}
	return buildDiskFromGeometry(g, data), nil
}

// WriteVDK decodes disk's MFM-encoded tracks back into 256-byte sector
// payloads (extractSectorPayloads follows the Disk's recorded sector size)
// and prepends the 12-byte VDK header ReadVDK parses.
func WriteVDK(filename string, disk *Disk) error {
	payload, err := extractSectorPayloads(disk)
	if err != nil {
		return err
	}
	nrSides := 1
	if disk.Tracks[0].Side1 != nil {
		nrSides = 2
	}

	hdr := make([]byte, 12)
	hdr[0], hdr[1] = 'd', 'k'
	putLE16(hdr[2:4], 12)
	hdr[8] = byte(len(disk.Tracks))
	hdr[9] = byte(nrSides)

	return os.WriteFile(filename, append(hdr, payload...), 0o644)
}
