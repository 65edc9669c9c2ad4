package hfe

import (
	"fmt"
	"os"

	"github.com/sergev/fluxcore/geometry"
)

// ReadJVC reads a JVC (Jeff Vavasour Coco/Dragon) image: a 0-255 byte
// optional header (present only when file size mod 256 != 0) followed by
// raw sector payloads, and returns a Disk whose tracks hold the
// on-the-fly MFM-encoded bitstream, exactly like ReadIMG.
func ReadJVC(filename string) (*Disk, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	g, ok := geometry.ParseJVC(data, info.Size())
	if !ok {
		return nil, fmt.Errorf("not a valid JVC image: %s", filename)
	}
	return buildDiskFromGeometry(g, data), nil
}

// WriteJVC decodes disk's MFM-encoded tracks back into sector payloads at
// the Disk's recorded sector size and prepends a 4-byte JVC header
// {sectors/track, sides, size code, first sector id}; the payload is a
// multiple of 256 bytes for every standard JVC shape, so the header length
// survives ParseJVC's size-mod-256 recovery.
func WriteJVC(filename string, disk *Disk) error {
	g := disk.Geom
	if g == nil {
		return fmt.Errorf("JVC write-back needs the resolved geometry the image was opened with")
	}
	payload, err := extractSectorPayloads(disk)
	if err != nil {
		return err
	}

	hdr := []byte{byte(g.NrSectors), byte(g.NrSides), byte(g.SecNo), byte(g.SecBase[0])}
	return os.WriteFile(filename, append(hdr, payload...), 0o644)
}
