package hfe

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sergev/fluxcore/geometry"
)

// writeTestImage fills a raw sector image with a per-sector pattern so a
// round trip can tell any two sectors apart.
func writeTestImage(t *testing.T, path string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i/512 + i)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return data
}

// TestReadIMGResolvesPCDOS reads a 720K raw image and checks the Disk that
// comes back carries the resolved geometry and per-cylinder encoded tracks.
func TestReadIMGResolvesPCDOS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot.img")
	writeTestImage(t, path, 80*2*9*512)

	disk, err := ReadIMG(path)
	if err != nil {
		t.Fatalf("ReadIMG: %v", err)
	}
	if disk.Geom == nil {
		t.Fatal("ReadIMG must record the resolved Geometry")
	}
	if disk.Geom.NrCyls != 80 || disk.Geom.NrSides != 2 || disk.Geom.NrSectors != 9 {
		t.Fatalf("geometry = %+v, want 80/2/9", disk.Geom)
	}
	if len(disk.Tracks) != 80 || disk.Tracks[0].Side0 == nil || disk.Tracks[0].Side1 == nil {
		t.Fatal("expected 80 double-sided encoded tracks")
	}
	if disk.Tracks[0].Stream0 == nil {
		t.Fatal("IMG tracks must carry a phase-streamer factory")
	}
	// 720K is a DD image; the HFE header bit rate is the data-bit rate.
	if disk.Header.BitRate != 250 {
		t.Fatalf("BitRate = %d, want 250", disk.Header.BitRate)
	}
}

// TestReadIMGBitRateHD checks a 1.44M image gets the HD data-bit rate.
func TestReadIMGBitRateHD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hd.img")
	writeTestImage(t, path, 80*2*18*512)

	disk, err := ReadIMG(path)
	if err != nil {
		t.Fatalf("ReadIMG: %v", err)
	}
	if disk.Header.BitRate != 500 {
		t.Fatalf("BitRate = %d, want 500", disk.Header.BitRate)
	}
}

// TestIMGRoundTrip360K encodes a raw image to MFM tracks and decodes it
// back, byte-for-byte.
func TestIMGRoundTrip360K(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "dos.img")
	dst := filepath.Join(dir, "out.img")
	want := writeTestImage(t, src, 40*2*9*512)

	disk, err := ReadIMG(src)
	if err != nil {
		t.Fatalf("ReadIMG: %v", err)
	}
	if err := WriteIMG(dst, disk); err != nil {
		t.Fatalf("WriteIMG: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("IMG round trip did not preserve sector payloads")
	}
}

// TestIMGRoundTripTRDOS checks the 256-byte-sector TR-DOS shape survives a
// round trip, including the geometry byte the resolver keys off.
func TestIMGRoundTripTRDOS(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "disk.img")
	dst := filepath.Join(dir, "out.img")

	size := 40 * 2 * 16 * 256
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i/256 + i)
	}
	data[0x8E3] = 0x17
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}

	disk, err := ReadIMGHost(src, geometry.HostTRDOS)
	if err != nil {
		t.Fatalf("ReadIMGHost: %v", err)
	}
	if disk.SecSize != 256 {
		t.Fatalf("SecSize = %d, want 256", disk.SecSize)
	}
	if err := WriteIMG(dst, disk); err != nil {
		t.Fatalf("WriteIMG: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("TR-DOS round trip did not preserve sector payloads")
	}
}

// TestIMGRoundTripTI99FM checks the FM-encoded, sequential-reverse-side1
// TI-99 shape survives a round trip: side 1's cylinders are stored in
// descending order after all of side 0's.
func TestIMGRoundTripTI99FM(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "disk.img")
	dst := filepath.Join(dir, "out.img")

	size := 40 * 9 * 2 * 256
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i/256 ^ i)
	}
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}

	disk, err := ReadIMGHost(src, geometry.HostTI99)
	if err != nil {
		t.Fatalf("ReadIMGHost: %v", err)
	}
	if disk.Geom.Encoding != geometry.EncodingFM {
		t.Fatalf("Encoding = %v, want FM", disk.Geom.Encoding)
	}
	if err := WriteIMG(dst, disk); err != nil {
		t.Fatalf("WriteIMG: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("TI-99 FM round trip did not preserve sector payloads")
	}
}

// TestIMGRoundTripAmiga checks the Amiga MFM dialect: an 880K raw image
// read with the Amiga host hint gets odd/even-scrambled Amiga tracks, and
// the payloads survive a round trip.
func TestIMGRoundTripAmiga(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "work.img")
	dst := filepath.Join(dir, "out.img")

	size := 80 * 2 * 11 * 512
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i/512 + i/7)
	}
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}

	disk, err := ReadIMGHost(src, geometry.HostAmigaADF)
	if err != nil {
		t.Fatalf("ReadIMGHost: %v", err)
	}
	if disk.Geom.Encoding != geometry.EncodingAmigaMFM {
		t.Fatalf("Encoding = %v, want Amiga MFM", disk.Geom.Encoding)
	}
	if !disk.VerifyAmiga {
		t.Fatal("InitVerifyOptions should detect the Amiga dialect")
	}
	if err := WriteIMG(dst, disk); err != nil {
		t.Fatalf("WriteIMG: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("Amiga round trip did not preserve sector payloads")
	}
}

// TestReadIMGRejectsUnknownSize confirms geometry rejection surfaces as an
// open error instead of a zero-track disk.
func TestReadIMGRejectsUnknownSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.img")
	writeTestImage(t, path, 12345)

	if _, err := ReadIMG(path); err == nil {
		t.Fatal("ReadIMG of an unresolvable size must fail")
	}
}
