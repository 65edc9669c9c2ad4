// Package image exposes the five-method image-handler trait —
// open/setup_track/read_track/rdata_flux/write_track, plus optional
// extend — as a small Go interface, and implements it once over
// hfe.Disk. Since every dialect (HFE, ADF, and now IMG-MFM/IMG-FM through
// hfe.ReadIMG) already normalizes to a Disk of raw per-side bitcell
// streams, one Image implementation serves all of them; the tagged-union
// split (`{Hfe, Img-MFM, Img-FM}`) lives one level down, in which encoder
// produced each Disk's bits.
package image

import (
	"fmt"
	"log"
	"os"

	"github.com/sergev/fluxcore/fio"
	"github.com/sergev/fluxcore/flux"
	"github.com/sergev/fluxcore/fm"
	"github.com/sergev/fluxcore/hfe"
	"github.com/sergev/fluxcore/mfm"
	"github.com/sergev/fluxcore/ring"
)

// Image is the capability set the rest of the emulator drives a disk
// image through.
type Image interface {
	Open(path string) error
	SetupTrack(cyl, head int, startPos *int64) error
	ReadTrack() bool
	RdataFlux(out []int) int
	WriteTrack() bool
	Extend() error
}

// ErrDiskFull is returned by Extend when the backing file cannot be grown
// to the requested size.
var ErrDiskFull = fmt.Errorf("image: disk full")

// ErrNotSupported is returned by Extend on image kinds that don't support
// growing (HFE tracks are fixed-length once written).
var ErrNotSupported = fmt.Errorf("image: extend not supported for this image kind")

// DiskImage drives a *hfe.Disk through the Image trait: SetupTrack selects
// a (cyl, head) pair's bitcell source, ReadTrack advances it into a
// BitcellRing respecting back-pressure (phase-by-phase via a
// ring.PhaseStreamer for IMG-family tracks, or in bounded byte chunks for
// pre-encoded HFE/ADF tracks), and RdataFlux drains the ring through a
// flux.Emitter.
type DiskImage struct {
	disk *hfe.Disk
	path string

	cyl, head int
	srcBits   []byte
	srcPos    int // byte offset into srcBits already pushed into the ring

	// stream, when non-nil, is a phase-counter generator (see
	// ring.PhaseStreamer) for a track synthesized from sector payloads
	// (IMG-family dialects); ReadTrack drains it phase-by-phase instead of
	// copying srcBits in arbitrary byte-sized gulps. Tracks whose bits come
	// straight off an HFE/ADF image (already pre-encoded, no sector/gap
	// phase structure to recover) leave this nil and fall back to the
	// byte-copy path.
	stream ring.PhaseStreamer

	Ring         *ring.BitcellRing
	Emitter      *flux.Emitter
	TicksPerCell int

	// writeCapture accumulates bytes handed in via PushCapturedBits, for
	// WriteTrack to decode once a full revolution has arrived.
	writeCapture []byte
}

// chunkBytes bounds how much of a track's pre-encoded bitcells ReadTrack
// pushes into the ring per call, the same batching spirit as HFE's
// batch_secs.
const chunkBytes = 512

// NewDiskImage allocates a DiskImage whose ring holds ringCapacityBytes
// bytes of cells; the size is passed to ring.NewBitcellRing unchanged.
func NewDiskImage(ringCapacityBytes int) *DiskImage {
	return &DiskImage{Ring: ring.NewBitcellRing(ringCapacityBytes)}
}

// Open reads any supported dialect (HFE, ADF, IMG) via hfe.Read, which
// dispatches by file extension and normalizes every dialect to per-side raw
// bitcell streams.
func (d *DiskImage) Open(path string) error {
	disk, err := hfe.Read(path)
	if err != nil {
		return err
	}
	d.disk = disk
	d.path = path
	return nil
}

// SetupTrack selects (cyl, head) as current and resets streaming state.
// startPos is accepted for interface symmetry with the flux-time
// seek, but DiskImage tracks are fully materialized in memory so the
// rotational offset is applied directly as a byte-aligned rotation rather
// than reconstructed from elapsed ticks.
func (d *DiskImage) SetupTrack(cyl, head int, startPos *int64) error {
	if d.disk.DoubleStep {
		// Media has half the step positions of a host drive (hfe_open's
		// double_step): the caller addresses cyl in host-visible (doubled)
		// units, so halve it to index the physically-stored Tracks.
		cyl /= 2
	}
	if cyl < 0 || cyl >= len(d.disk.Tracks) {
		return fmt.Errorf("image: cylinder %d out of range", cyl)
	}
	td := d.disk.Tracks[cyl]
	bits := td.Side0
	newStream := td.Stream0
	if head == 1 {
		bits = td.Side1
		newStream = td.Stream1
	}
	if bits == nil {
		return fmt.Errorf("image: no data for cyl %d head %d", cyl, head)
	}

	d.cyl, d.head = cyl, head
	d.srcBits = bits
	d.srcPos = 0
	if startPos != nil && len(bits) > 0 {
		d.srcPos = int(*startPos) % len(bits)
	}
	d.writeCapture = d.writeCapture[:0]

	d.stream = nil
	if newStream != nil && (startPos == nil || *startPos == 0) {
		d.stream = newStream()
	}

	d.Ring.Reset()
	// write_bc_ticks = sysclk_us(500)/bitrate, ticks_per_cell = 16x that:
	// a 250 kb/s disk runs 72 system-clock ticks per bitcell at 36MHz.
	writeBcTicks := 72
	if d.disk.Header.BitRate != 0 {
		writeBcTicks = 500 * sysclkMHz / int(d.disk.Header.BitRate)
	}
	d.TicksPerCell = writeBcTicks * 16
	d.Emitter = flux.NewEmitter(d.Ring, d.TicksPerCell)
	return nil
}

// sysclkMHz is the emulator system-clock rate in ticks per microsecond
// (hfe.FLOPPYEMUFREQ expressed per-us).
const sysclkMHz = 36

// ReadTrack advances the current track's bitcell production by one
// back-pressured step. When a phase-counter stream is available (IMG-family
// tracks synthesized from sector payloads) it drives d.stream.Step, which
// walks IDAM/gap2/DAM-data/gap3 phase boundaries and refuses to advance past
// whatever the ring can currently hold, exactly like hfe_read_track's
// bc_space check. Once the stream completes a full revolution it is rebuilt
// from scratch so polling ReadTrack keeps regenerating the track forever,
// matching the wrap-around-until-SetupTrack contract the byte-copy fallback
// below also honors. Tracks with no phase structure to recover (HFE/ADF,
// already pre-encoded) fall back to copying srcBits in chunkBytes gulps.
func (d *DiskImage) ReadTrack() bool {
	if d.stream != nil {
		progressed := false
		for !d.stream.Done() {
			if !d.stream.Step(d.Ring) {
				break
			}
			progressed = true
		}
		if d.stream.Done() {
			td := d.disk.Tracks[d.cyl]
			newStream := td.Stream0
			if d.head == 1 {
				newStream = td.Stream1
			}
			if newStream != nil {
				d.stream = newStream()
			}
		}
		return progressed
	}

	if d.srcBits == nil {
		return false
	}
	progressed := false
	for i := 0; i < chunkBytes; i++ {
		if d.Ring.Space() < 8 {
			break
		}
		d.Ring.PutByte(d.srcBits[d.srcPos])
		d.srcPos = (d.srcPos + 1) % len(d.srcBits)
		progressed = true
	}
	return progressed
}

// RdataFlux drains ring bitcells into flux intervals via the shared
// FluxEmitter tail.
func (d *DiskImage) RdataFlux(out []int) int {
	if d.Emitter == nil {
		return 0
	}
	return d.Emitter.Produce(out)
}

// PushCapturedBits feeds write-captured bitcell bytes (from the external
// flux tail) for later decode by WriteTrack. Real hardware would hand
// these in as they arrive from the write-data line; tests and the `verify`
// CLI command call this directly with a just-encoded track's bytes.
func (d *DiskImage) PushCapturedBits(b []byte) {
	d.writeCapture = append(d.writeCapture, b...)
}

// WriteTrack consumes the captured bitcells as the current track's new
// contents: if at least one sector decodes cleanly (CRC-verified, id in
// range) the captured bits replace the side's bitcell stream, so a later
// hfe.Write/WriteIMG persists the new payloads; a capture with no clean
// sector is logged and dropped, leaving the on-disk state untouched. It
// returns true once the capture has been consumed either way, false when
// there is nothing to consume yet.
//
// When the image is backed by an HFE file, the capture is additionally
// written through to the file via hfe.TrackWriter's batch read-modify-write,
// which preserves any v3 opcodes the on-disk track carries; other dialects
// leave write-back to the caller (hfe.Write/WriteIMG over the in-memory
// Disk), matching the note that the image file handle is a foreground-only
// resource.
func (d *DiskImage) WriteTrack() bool {
	if len(d.writeCapture) == 0 {
		return false
	}
	captured := append([]byte(nil), d.writeCapture...)
	d.writeCapture = d.writeCapture[:0]

	if !d.captureDecodes(captured) {
		log.Printf("image: dropping captured track cyl %d head %d: no sector decoded cleanly", d.cyl, d.head)
		return true
	}

	td := &d.disk.Tracks[d.cyl]
	if d.head == 0 {
		td.Side0 = captured
		td.Stream0 = nil
	} else {
		td.Side1 = captured
		td.Stream1 = nil
	}
	d.srcBits = captured
	d.srcPos = 0
	d.stream = nil

	if hfe.DetectImageFormat(d.path) == hfe.ImageFormatHFE {
		if err := hfe.WriteTrackBits(d.path, d.cyl, d.head, captured); err != nil {
			log.Printf("image: hfe write-back cyl %d head %d: %v", d.cyl, d.head, err)
		}
	}
	return true
}

// captureDecodes probes a captured bitcell stream with the sector dialect
// this Disk carries (Amiga MFM, IBM-PC MFM, then FM) and reports whether
// any sector survives CRC and id-range checks. The IBM-PC probe verifies
// both the header and the data CRC, and also requires the header's
// cylinder and head to match the current track.
func (d *DiskImage) captureDecodes(captured []byte) bool {
	secSize := d.disk.SecSize
	if secSize == 0 {
		secSize = 512
	}
	if d.disk.VerifyAmiga {
		return mfm.NewReader(captured).CountSectorsAmiga(d.cyl*2+d.head) > 0
	}
	r := mfm.NewReaderSecSize(captured, secSize)
	for {
		n, _, err := r.ReadSectorIBMPC(d.cyl, d.head)
		if err != nil {
			break
		}
		if n >= 0 {
			return true
		}
	}
	return fm.NewReader(captured).CountSectors(d.cyl, d.head, secSize) > 0
}

// Extend grows the backing file to the full geometry's size
// (nr_cyls x nr_sides x nr_sectors x sec_sz + base_off), the IMG-family
// operation that lets a partial image be formatted out to its complete
// shape. Disks without a resolved Geometry (HFE/ADF, fixed-length tracks
// once written) don't support it.
func (d *DiskImage) Extend() error {
	if d.disk == nil || d.disk.Geom == nil {
		return ErrNotSupported
	}
	g := d.disk.Geom
	want := int64(g.NrCyls)*int64(g.NrSides)*int64(g.NrSectors)*int64(g.SecSize) + g.BaseOff

	f, err := fio.Open(d.path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return fio.Die("stat image", err)
	}
	if size >= want {
		return nil
	}
	if _, err := f.WriteAt([]byte{0}, want-1); err != nil {
		return fmt.Errorf("%w: cannot reach offset %d: %v", ErrDiskFull, want, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrDiskFull, err)
	}
	return nil
}

// Disk exposes the underlying Disk for callers that need to persist it
// (hfe.WriteHFE/WriteIMG) after streaming.
func (d *DiskImage) Disk() *hfe.Disk { return d.disk }
