package hfe

import (
	"errors"
	"fmt"
	"os"

	"github.com/sergev/fluxcore/fm"
	"github.com/sergev/fluxcore/geometry"
	"github.com/sergev/fluxcore/mfm"
	"github.com/sergev/fluxcore/ring"
	"github.com/sergev/fluxcore/track"
)

// ReadIMG reads a raw sector-payload image (.img/.ima) using the generic
// PC-DOS template search. Equivalent to ReadIMGHost(filename, HostGeneric).
func ReadIMG(filename string) (*Disk, error) {
	return ReadIMGHost(filename, geometry.HostGeneric)
}

// ReadIMGHost reads a raw sector-payload image (.img/.ima) and returns a Disk
// structure whose Tracks hold the on-the-fly MFM/FM-encoded bitcell stream
// for each cylinder/side, exactly like a Disk read from an HFE file. hint
// selects which host's template list geometry.Resolve searches first
// (HostAtariST, HostTI99, HostTRDOS, HostUKNC, HostMSX, ...); Resolve falls
// back to the generic list itself if the hinted search comes up empty.
func ReadIMGHost(filename string, hint geometry.Host) (*Disk, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	g, err := geometry.Resolve(hint, int64(len(data)), data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve geometry: %w", err)
	}

	return buildDiskFromGeometry(g, data), nil
}

// buildDiskFromGeometry synthesizes a Disk's MFM/FM bitcell tracks from a
// resolved Geometry and the raw sector-payload bytes, shared by ReadIMG and
// the embedded-header dialects (VDK/JVC/SDU/PC-98 FDI) that resolve their
// own Geometry directly from a fixed header rather than geometry.Resolve's
// template search.
func buildDiskFromGeometry(g geometry.Geometry, data []byte) *Disk {
	// The header bit rate comes from the data-rate class track sizing
	// selects, not the template's nominal rate. Track sizing counts raw
	// bitcells (500 kc/s for a DD track, 1000 for HD) while the HFE header
	// records the data-bit rate, which is half that: a 1.44M image gets
	// BitRate 500 where a 720K image gets 250.
	layout0 := track.New(g, 0, 0)

	disk := &Disk{
		Header: Header{
			NumberOfTrack: uint8(g.NrCyls),
			NumberOfSide:  uint8(g.NrSides),
			BitRate:       uint16(layout0.DataRateKbps / 2),
			FloppyRPM:     uint16(g.RPM),
		},
		Tracks:  make([]TrackData, g.NrCyls),
		SecSize: g.SecSize,
		Geom:    &g,
	}

	for cyl := 0; cyl < g.NrCyls; cyl++ {
		td := TrackData{}
		for side := 0; side < g.NrSides; side++ {
			cyl, side := cyl, side // capture per-iteration values for the closures below
			layout := track.New(g, cyl, side)
			secMap := layout.SecMap

			trackOff := track.ByteOffset(g, cyl, side)
			sectorOf := func(logical int) []byte {
				i := logical - g.SecBase[side]
				off := trackOff + int64(i)*int64(g.SecSize)
				if off < 0 || off+int64(g.SecSize) > int64(len(data)) {
					return make([]byte, g.SecSize)
				}
				return data[off : off+int64(g.SecSize)]
			}

			var bits []byte
			var newStream func() ring.PhaseStreamer
			maxHalfBits := layout.TrackLenBc
			switch g.Encoding {
			case geometry.EncodingAmigaMFM:
				// Amiga tracks have no IDAM/gap phase structure to replay,
				// so they stream through the byte-copy path like HFE/ADF
				// tracks (no phase-streamer factory).
				sectors := make([][]byte, g.NrSectors)
				for i := range sectors {
					sectors[i] = sectorOf(i + g.SecBase[side])
				}
				w := mfm.NewWriter(maxHalfBits)
				bits = w.EncodeTrackAmiga(sectors, cyl*g.NrSides+side)
			case geometry.EncodingFM:
				w := fm.NewWriter(maxHalfBits / 8)
				bits = w.EncodeTrack(secMap, sectorOf, cyl, side, g.SecNo, g.Gap3)
				newStream = func() ring.PhaseStreamer {
					return fm.NewTrackStream(secMap, sectorOf, cyl, side, g.SecNo, g.Gap3, maxHalfBits/8)
				}
			default:
				tg := mfm.TrackGeometry{
					SecMap: secMap,
					Cyl:    cyl, Head: side,
					SecNo: g.SecNo,
					// layout.Gap4a, not g.Gap4a: sizing may have dropped the
					// post-index gap to fit the standard revolution.
					Gap2: g.Gap2, Gap3: g.Gap3, Gap4a: layout.Gap4a,
					HasIAM:       g.HasIAM,
					PostCRCSyncs: g.PostCRCSyncs,
				}
				w := mfm.NewWriter(maxHalfBits)
				bits = w.EncodeTrackGeometry(sectorOf, tg)
				newStream = func() ring.PhaseStreamer {
					return mfm.NewTrackStream(sectorOf, tg, maxHalfBits)
				}
			}

			if side == 0 {
				td.Side0 = bits
				td.Stream0 = newStream
			} else {
				td.Side1 = bits
				td.Stream1 = newStream
			}
		}
		disk.Tracks[cyl] = td
	}

	disk.InitVerifyOptions()
	return disk
}

// WriteIMG decodes disk's encoded tracks back into sector payloads and
// writes them as a raw .img/.ima file, following the Disk's recorded
// Geometry (or a cylinder-0 sector probe for Disks read from HFE).
func WriteIMG(filename string, disk *Disk) error {
	out, err := extractSectorPayloads(disk)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, out, 0o644)
}

// extractSectorPayloads decodes disk's MFM- or FM-encoded tracks back into
// a flat raw sector-payload byte slice (no header), the shared write-back
// path for WriteIMG and the embedded-header dialects, which only need to
// prepend their own header bytes. When the Disk carries its resolved
// Geometry, sector size/count, base id, encoding, and the persisted layout
// (track.ByteOffset) all come from it; a Disk built some other way (e.g.
// read from HFE) falls back to a cylinder-0 MFM sector probe and the plain
// interleaved layout.
func extractSectorPayloads(disk *Disk) ([]byte, error) {
	if len(disk.Tracks) == 0 {
		return nil, fmt.Errorf("empty disk")
	}
	g := disk.Geom
	nrSides := 1
	if disk.Tracks[0].Side1 != nil {
		nrSides = 2
	}
	nrCyls := len(disk.Tracks)

	secSize := disk.SecSize
	if secSize == 0 {
		secSize = 512
	}

	isFM := g != nil && g.Encoding == geometry.EncodingFM
	isAmiga := g != nil && g.Encoding == geometry.EncodingAmigaMFM
	nrSectors := 0
	if g != nil {
		nrSectors = g.NrSectors
	} else {
		reader := mfm.NewReaderSecSize(disk.Tracks[0].Side0, secSize)
		nrSectors = reader.CountSectorsIBMPC()
	}
	if nrSectors == 0 {
		return nil, fmt.Errorf("could not determine sector count for IMG write-back")
	}

	out := make([]byte, nrCyls*nrSides*nrSectors*secSize)

	for cyl := 0; cyl < nrCyls; cyl++ {
		sides := [][]byte{disk.Tracks[cyl].Side0, disk.Tracks[cyl].Side1}
		for side := 0; side < nrSides; side++ {
			bits := sides[side]
			if bits == nil {
				continue
			}
			trackOff := (cyl*nrSides + side) * nrSectors * secSize
			if g != nil {
				trackOff = int(track.ByteOffset(*g, cyl, side) - g.BaseOff)
			}
			switch {
			case isFM:
				extractTrackFM(out, bits, g, cyl, side, trackOff, secSize)
			case isAmiga:
				extractTrackAmiga(out, bits, g, cyl, side, trackOff, secSize)
			default:
				extractTrackMFM(out, disk, bits, cyl, side, trackOff, nrSectors, secSize)
			}
		}
	}

	return out, nil
}

func extractTrackMFM(out []byte, disk *Disk, bits []byte, cyl, side, trackOff, nrSectors, secSize int) {
	r := mfm.NewReaderSecSize(bits, secSize)
	n := r.CountSectorsIBMPC()
	r = mfm.NewReaderSecSize(bits, secSize)
	if disk.Geom != nil {
		r.SetSecBase(disk.Geom.SecBase[side])
	}
	for got := 0; got < n; got++ {
		logical, sectorData, err := r.ReadSectorIBMPC(cyl, side)
		if err != nil {
			break
		}
		if logical < 0 || logical >= nrSectors {
			continue
		}
		copy(out[trackOff+logical*secSize:trackOff+(logical+1)*secSize], sectorData)
	}
}

func extractTrackAmiga(out []byte, bits []byte, g *geometry.Geometry, cyl, side, trackOff, secSize int) {
	trk := cyl*g.NrSides + side
	r := mfm.NewReader(bits)
	n := r.CountSectorsAmiga(trk)
	r = mfm.NewReader(bits)
	for got := 0; got < n; got++ {
		id, sectorData, err := r.ReadSectorAmiga(trk)
		if err != nil {
			break
		}
		if id < 0 || id >= g.NrSectors {
			continue
		}
		copy(out[trackOff+id*secSize:trackOff+(id+1)*secSize], sectorData)
	}
}

func extractTrackFM(out []byte, bits []byte, g *geometry.Geometry, cyl, side, trackOff, secSize int) {
	r := fm.NewReader(bits)
	for {
		id, sectorData, err := r.ReadSector(cyl, side, secSize)
		if errors.Is(err, fm.ErrNoMoreSectors) {
			return
		}
		if err != nil {
			continue
		}
		logical := id - g.SecBase[side]
		if logical < 0 || logical >= g.NrSectors {
			continue
		}
		copy(out[trackOff+logical*secSize:trackOff+(logical+1)*secSize], sectorData)
	}
}
