package image

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sergev/fluxcore/geometry"
	"github.com/sergev/fluxcore/hfe"
	"github.com/sergev/fluxcore/mfm"
)

// encodeTestTrack renders an IBM-PC MFM track from sectors (1-based ids,
// identity rotational order) for the write-back tests below.
func encodeTestTrack(sectors [][]byte) []byte {
	secMap := make([]int, len(sectors))
	for i := range secMap {
		secMap[i] = i + 1
	}
	tg := mfm.TrackGeometry{
		SecMap: secMap,
		SecNo:  2,
		Gap2:   22, Gap3: 84, Gap4a: 80,
		HasIAM: true,
	}
	return mfm.NewWriter(200000).EncodeTrackGeometry(func(id int) []byte { return sectors[id-1] }, tg)
}

func newTestDiskImage(side0 []byte) *DiskImage {
	d := NewDiskImage(4096)
	d.disk = &hfe.Disk{
		Header: hfe.Header{BitRate: 250},
		Tracks: []hfe.TrackData{{Side0: side0}},
	}
	return d
}

func TestSetupTrackReadAndFlux(t *testing.T) {
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i * 7)
	}
	d := newTestDiskImage(data)

	if err := d.SetupTrack(0, 0, nil); err != nil {
		t.Fatalf("SetupTrack: %v", err)
	}
	if !d.ReadTrack() {
		t.Fatal("ReadTrack: expected progress on first call")
	}

	out := make([]int, 16)
	n := d.RdataFlux(out)
	if n == 0 {
		t.Fatal("RdataFlux: expected at least one interval")
	}
}

func TestSetupTrackCylinderOutOfRange(t *testing.T) {
	d := newTestDiskImage([]byte{1, 2, 3, 4})
	if err := d.SetupTrack(5, 0, nil); err == nil {
		t.Fatal("expected error for out-of-range cylinder")
	}
}

func TestSetupTrackMissingSide(t *testing.T) {
	d := newTestDiskImage([]byte{1, 2, 3, 4})
	if err := d.SetupTrack(0, 1, nil); err == nil {
		t.Fatal("expected error: side 1 has no data")
	}
}

func TestReadTrackWrapsAroundTrack(t *testing.T) {
	data := []byte{0xAA, 0xBB}
	d := newTestDiskImage(data)
	if err := d.SetupTrack(0, 0, nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		d.ReadTrack()
	}
	if d.srcPos < 0 || d.srcPos >= len(data) {
		t.Fatalf("srcPos escaped track bounds: %d", d.srcPos)
	}
}

func TestSetupTrackStartPosRotatesWithinTrack(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	d := newTestDiskImage(data)
	start := int64(3)
	if err := d.SetupTrack(0, 0, &start); err != nil {
		t.Fatal(err)
	}
	if d.srcPos != 3 {
		t.Fatalf("srcPos = %d, want 3", d.srcPos)
	}
}

func TestExtendNotSupportedWithoutGeometry(t *testing.T) {
	d := newTestDiskImage([]byte{1, 2, 3, 4})
	if err := d.Extend(); err != ErrNotSupported {
		t.Fatalf("Extend() = %v, want ErrNotSupported", err)
	}
}

func TestExtendGrowsBackingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.img")
	if err := os.WriteFile(path, make([]byte, 512), 0o644); err != nil {
		t.Fatal(err)
	}

	g := geometry.Geometry{
		NrCyls:    2,
		NrSides:   2,
		NrSectors: 9,
		SecSize:   512,
	}
	d := newTestDiskImage([]byte{1, 2, 3, 4})
	d.disk.Geom = &g
	d.path = path

	if err := d.Extend(); err != nil {
		t.Fatalf("Extend: %v", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	want := int64(2 * 2 * 9 * 512)
	if fi.Size() != want {
		t.Fatalf("file size after Extend = %d, want %d", fi.Size(), want)
	}

	// A second Extend is a no-op on an already-full file.
	if err := d.Extend(); err != nil {
		t.Fatalf("Extend (already full): %v", err)
	}
	fi, _ = os.Stat(path)
	if fi.Size() != want {
		t.Fatalf("file size grew past geometry: %d", fi.Size())
	}
}

func TestExtendUnreachablePathIsDiskFull(t *testing.T) {
	g := geometry.Geometry{NrCyls: 1, NrSides: 1, NrSectors: 1, SecSize: 512}
	d := newTestDiskImage([]byte{1})
	d.disk.Geom = &g
	d.path = filepath.Join(t.TempDir(), "no-such-dir", "img.img")

	err := d.Extend()
	if err == nil {
		t.Fatal("Extend on an unopenable path should fail")
	}
	if errors.Is(err, ErrNotSupported) {
		t.Fatalf("Extend = ErrNotSupported, want an open/DiskFull error")
	}
}

func TestWriteTrackNoCaptureMeansNoProgress(t *testing.T) {
	d := newTestDiskImage([]byte{1, 2, 3, 4})
	if d.WriteTrack() {
		t.Fatal("WriteTrack with no captured bits should report no progress")
	}
}

func TestWriteTrackInstallsCapturedSectors(t *testing.T) {
	oldSectors := [][]byte{
		bytes.Repeat([]byte{0x11}, 512),
		bytes.Repeat([]byte{0x22}, 512),
	}
	oldTrack := encodeTestTrack(oldSectors)

	newSectors := [][]byte{
		bytes.Repeat([]byte{0x33}, 512),
		bytes.Repeat([]byte{0x44}, 512),
	}
	newTrack := encodeTestTrack(newSectors)

	d := newTestDiskImage(oldTrack)
	if err := d.SetupTrack(0, 0, nil); err != nil {
		t.Fatal(err)
	}
	d.PushCapturedBits(newTrack)

	if !d.WriteTrack() {
		t.Fatal("WriteTrack: expected the capture to be consumed")
	}
	if !bytes.Equal(d.disk.Tracks[0].Side0, newTrack) {
		t.Fatal("WriteTrack did not install the captured bits")
	}

	// The installed bits must decode back to the new payloads.
	r := mfm.NewReader(d.disk.Tracks[0].Side0)
	num, data, err := r.ReadSectorIBMPC(0, 0)
	if err != nil {
		t.Fatalf("ReadSectorIBMPC after write-back: %v", err)
	}
	if !bytes.Equal(data, newSectors[num]) {
		t.Fatalf("sector %d payload mismatch after write-back", num)
	}
}

func TestWriteTrackDropsUndecodableCapture(t *testing.T) {
	sectors := [][]byte{bytes.Repeat([]byte{0x33}, 512)}
	track := encodeTestTrack(sectors)

	corrupt := make([]byte, len(track))
	copy(corrupt, track)
	// Raw byte 1000 lies inside the single sector's 512-byte data field
	// (raw bytes 412..1435), so flipping it breaks that sector's data CRC.
	corrupt[1000] ^= 0xFF

	d := newTestDiskImage(track)
	if err := d.SetupTrack(0, 0, nil); err != nil {
		t.Fatal(err)
	}
	d.PushCapturedBits(corrupt)

	if !d.WriteTrack() {
		t.Fatal("WriteTrack: a bad capture is still consumed")
	}
	if !bytes.Equal(d.disk.Tracks[0].Side0, track) {
		t.Fatal("WriteTrack must not install a capture with no clean sector")
	}
}

// TestWriteTrackWritesThroughToHFEFile checks the HFE write path end to
// end: a capture accepted by WriteTrack lands in the backing .hfe file via
// the batch read-modify-write TrackWriter, so re-reading the file yields
// the new sector payloads.
func TestWriteTrackWritesThroughToHFEFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.hfe")

	oldTrack := encodeTestTrack([][]byte{bytes.Repeat([]byte{0x11}, 512)})
	disk := &hfe.Disk{
		Header: hfe.Header{
			NumberOfTrack: 1,
			NumberOfSide:  1,
			BitRate:       250,
			FloppyRPM:     300,
			SingleStep:    0xFF,
		},
		Tracks: []hfe.TrackData{{Side0: oldTrack}},
	}
	if err := hfe.WriteHFE(path, disk, hfe.HFEVersion3); err != nil {
		t.Fatalf("WriteHFE: %v", err)
	}

	d := NewDiskImage(4096)
	if err := d.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.SetupTrack(0, 0, nil); err != nil {
		t.Fatalf("SetupTrack: %v", err)
	}

	newTrack := encodeTestTrack([][]byte{bytes.Repeat([]byte{0x99}, 512)})
	d.PushCapturedBits(newTrack)
	if !d.WriteTrack() {
		t.Fatal("WriteTrack: expected the capture to be consumed")
	}

	reread, err := hfe.ReadHFE(path)
	if err != nil {
		t.Fatalf("ReadHFE after write-back: %v", err)
	}
	r := mfm.NewReader(reread.Tracks[0].Side0)
	num, data, err := r.ReadSectorIBMPC(0, 0)
	if err != nil {
		t.Fatalf("ReadSectorIBMPC after write-back: %v", err)
	}
	if num != 0 || !bytes.Equal(data, bytes.Repeat([]byte{0x99}, 512)) {
		t.Fatal("the backing HFE file does not hold the written payload")
	}
}

func TestDiskImageDiskAccessor(t *testing.T) {
	d := newTestDiskImage([]byte{1, 2})
	if d.Disk() == nil {
		t.Fatal("Disk() returned nil after manual construction")
	}
}
