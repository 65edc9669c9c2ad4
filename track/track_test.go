package track

import (
	"testing"

	"github.com/sergev/fluxcore/geometry"
)

// TestSectorMapInterleave1IsIdentity checks the base case: with
// interleave 1 and no skew, SectorMap is the identity permutation offset by
// sec_base.
func TestSectorMapInterleave1IsIdentity(t *testing.T) {
	g := geometry.Geometry{NrSectors: 9, Interleave: 1, SecBase: [2]int{1, 1}}
	got := SectorMap(g, 0, 0)
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("SectorMap[%d] = %d, want %d", i, v, i+1)
		}
	}
}

// TestSectorMapInterleave2 checks a 2:1 interleave on a 5-sector track
// produces a permutation that visits every logical sector exactly once.
func TestSectorMapInterleave2(t *testing.T) {
	g := geometry.Geometry{NrSectors: 5, Interleave: 2, SecBase: [2]int{1, 1}}
	got := SectorMap(g, 0, 0)
	seen := make(map[int]bool)
	for _, v := range got {
		if seen[v] {
			t.Fatalf("SectorMap produced duplicate logical sector %d: %v", v, got)
		}
		seen[v] = true
	}
	if len(seen) != 5 {
		t.Fatalf("SectorMap = %v, want all 5 logical sectors present", got)
	}
}

// TestSectorMapSkewRotatesStart checks that nonzero skew shifts the starting
// rotational slot between tracks
func TestSectorMapSkewRotatesStart(t *testing.T) {
	g := geometry.Geometry{NrSectors: 9, Interleave: 1, Skew: 2, SecBase: [2]int{1, 1}}
	track0 := SectorMap(g, 0, 0)
	track1 := SectorMap(g, 0, 1)
	if track0[0] == track1[0] {
		t.Fatalf("skew did not rotate starting sector between tracks: %v vs %v", track0, track1)
	}
}

// TestCylOrTrackForRespectsSkewCylsOnly confirms a cylinder-only-skew
// dialect (e.g. TI-99) keys skew purely off cylinder, while a track-skew
// dialect also turns with side.
func TestCylOrTrackForRespectsSkewCylsOnly(t *testing.T) {
	gCylsOnly := geometry.Geometry{NrSides: 2, SkewCylsOnly: true}
	if got := cylOrTrackFor(gCylsOnly, 3, 1); got != 3 {
		t.Fatalf("cylOrTrackFor(cylsOnly) = %d, want 3", got)
	}

	gTrack := geometry.Geometry{NrSides: 2, SkewCylsOnly: false}
	if got := cylOrTrackFor(gTrack, 3, 1); got != 3*2+1 {
		t.Fatalf("cylOrTrackFor(track) = %d, want %d", got, 3*2+1)
	}
	if got := cylOrTrackFor(gTrack, 3, 0); got == cylOrTrackFor(gTrack, 3, 1) {
		t.Fatal("cylOrTrackFor(track) should differ between side 0 and side 1")
	}
}

// TestByteOffsetInterleaved checks the default IMG layout in :
// tracks laid out cylinder-major, side-minor.
func TestByteOffsetInterleaved(t *testing.T) {
	g := geometry.Geometry{NrCyls: 80, NrSides: 2, NrSectors: 18, SecSize: 512, Layout: geometry.LayoutInterleaved}
	trkLen := int64(18 * 512)
	if got := ByteOffset(g, 0, 0); got != 0 {
		t.Fatalf("ByteOffset(0,0) = %d, want 0", got)
	}
	if got := ByteOffset(g, 0, 1); got != trkLen {
		t.Fatalf("ByteOffset(0,1) = %d, want %d", got, trkLen)
	}
	if got := ByteOffset(g, 1, 0); got != 2*trkLen {
		t.Fatalf("ByteOffset(1,0) = %d, want %d", got, 2*trkLen)
	}
}

// TestByteOffsetSequentialReverseSide1 checks the TI-99 layout: side 0
// stored cylinder-ascending, side 1 stored cylinder-descending, both
// contiguous halves of the file.
func TestByteOffsetSequentialReverseSide1(t *testing.T) {
	g := geometry.Geometry{NrCyls: 40, NrSides: 2, NrSectors: 9, SecSize: 256, Layout: geometry.LayoutSequentialReverseSide1}
	trkLen := int64(9 * 256)

	if got := ByteOffset(g, 0, 0); got != 0 {
		t.Fatalf("ByteOffset(0,0) = %d, want 0", got)
	}
	if got := ByteOffset(g, 39, 0); got != 39*trkLen {
		t.Fatalf("ByteOffset(39,0) = %d, want %d", got, 39*trkLen)
	}
	// Side 1 starts right after all of side 0, cylinder-descending.
	wantSide1Cyl39 := int64(40)*trkLen + 0*trkLen
	if got := ByteOffset(g, 39, 1); got != wantSide1Cyl39 {
		t.Fatalf("ByteOffset(39,1) = %d, want %d", got, wantSide1Cyl39)
	}
	wantSide1Cyl0 := int64(40)*trkLen + 39*trkLen
	if got := ByteOffset(g, 0, 1); got != wantSide1Cyl0 {
		t.Fatalf("ByteOffset(0,1) = %d, want %d", got, wantSide1Cyl0)
	}
}

// TestNewProducesNonZeroTrackLen checks New derives a plausible MFM track
// length for a standard 300RPM, 250kbps 512-byte-sector geometry, and that
// the result rounds up to a multiple of 32 bitcells.
func TestNewProducesNonZeroTrackLen(t *testing.T) {
	g := geometry.Geometry{
		NrCyls: 80, NrSides: 2, NrSectors: 9, SecSize: 512,
		Interleave: 1, SecBase: [2]int{1, 1},
		HasIAM: true, Encoding: geometry.EncodingMFM,
		RPM: 300, Gap2: 22, Gap3: 84, Gap4a: 80,
	}
	l := New(g, 0, 0)
	if l.TrackLenBc == 0 {
		t.Fatal("New: TrackLenBc must be nonzero")
	}
	if l.TrackLenBc%32 != 0 {
		t.Fatalf("TrackLenBc = %d, want a multiple of 32", l.TrackLenBc)
	}
	if len(l.SecMap) != g.NrSectors {
		t.Fatalf("len(SecMap) = %d, want %d", len(l.SecMap), g.NrSectors)
	}
}

// TestSectorMapAtariST720K checks the rotational map an Atari ST 720K
// geometry produces for cylinder 0: TOS's 2:1 interleave lays the nine
// sectors out as 1,6,2,7,3,8,4,9,5.
func TestSectorMapAtariST720K(t *testing.T) {
	g, err := geometry.Resolve(geometry.HostAtariST, 80*2*9*512, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	l := New(g, 0, 0)
	want := []int{1, 6, 2, 7, 3, 8, 4, 9, 5}
	for i, v := range want {
		if l.SecMap[i] != v {
			t.Fatalf("SecMap = %v, want %v", l.SecMap, want)
		}
	}
}

// TestNewSelectsDataRateClass checks the rate classes track sizing picks:
// a 1.44M MFM track needs the HD bitcell rate (1000 kc/s, 200,000 bitcells
// per revolution), a 720K track fits the DD rate, and a TI-99 FM track
// stays at the SD rate with the standard 50,000-bitcell revolution
// (rounded up to the next multiple of 32).
func TestNewSelectsDataRateClass(t *testing.T) {
	hd := geometry.Geometry{
		NrCyls: 80, NrSides: 2, NrSectors: 18, SecSize: 512,
		Interleave: 1, SecBase: [2]int{1, 1},
		HasIAM: true, Encoding: geometry.EncodingMFM,
		RPM: 300, Gap2: 22, Gap3: 84, Gap4a: 80,
	}
	l := New(hd, 0, 0)
	if l.DataRateKbps != 1000 {
		t.Fatalf("1.44M DataRateKbps = %d, want 1000", l.DataRateKbps)
	}
	if l.TrackLenBc != 200000 {
		t.Fatalf("1.44M TrackLenBc = %d, want 200000", l.TrackLenBc)
	}

	dd := hd
	dd.NrSectors = 9
	l = New(dd, 0, 0)
	if l.DataRateKbps != 500 {
		t.Fatalf("720K DataRateKbps = %d, want 500", l.DataRateKbps)
	}

	fm := geometry.Geometry{
		NrCyls: 40, NrSides: 2, NrSectors: 9, SecSize: 256,
		Interleave: 4, Skew: 3, SkewCylsOnly: true,
		Encoding: geometry.EncodingFM,
		RPM:      300, Gap2: 11, Gap3: 44, Gap4a: 16,
	}
	l = New(fm, 0, 0)
	if l.DataRateKbps != 250 {
		t.Fatalf("TI-99 DataRateKbps = %d, want 250", l.DataRateKbps)
	}
	if l.TrackLenBc != 50016 {
		t.Fatalf("TI-99 TrackLenBc = %d, want 50016", l.TrackLenBc)
	}
}

// TestByteOffsetInterleavedSwapSides checks the swapped-sides layout: each
// cylinder's side order in the file is reversed relative to the physical
// head.
func TestByteOffsetInterleavedSwapSides(t *testing.T) {
	g := geometry.Geometry{
		NrCyls: 80, NrSides: 2, NrSectors: 16, SecSize: 256,
		Layout: geometry.LayoutInterleavedSwapSides,
	}
	trkLen := int64(16 * 256)
	if got := ByteOffset(g, 0, 0); got != trkLen {
		t.Fatalf("ByteOffset(0,0) = %d, want %d (side 0 maps to second half-cylinder)", got, trkLen)
	}
	if got := ByteOffset(g, 0, 1); got != 0 {
		t.Fatalf("ByteOffset(0,1) = %d, want 0 (side 1 maps first)", got)
	}
	if got := ByteOffset(g, 3, 0); got != (3*2+1)*trkLen {
		t.Fatalf("ByteOffset(3,0) = %d, want %d", got, (3*2+1)*trkLen)
	}
}

// TestNewDropsGap4aBeforeLongTrack checks the two-step oversize fallback:
// a track slightly over the standard revolution first sheds its post-index
// gap, and only a track that still doesn't fit becomes a long track.
func TestNewDropsGap4aBeforeLongTrack(t *testing.T) {
	g := geometry.Geometry{
		NrCyls: 80, NrSides: 2, NrSectors: 19, SecSize: 512,
		Interleave: 1, SecBase: [2]int{1, 1},
		HasIAM: true, Encoding: geometry.EncodingMFM,
		RPM: 300, Gap2: 22, Gap3: 78, Gap4a: 80,
	}
	// Raw length 200,544 bitcells: over the 200,000-bitcell HD standard,
	// but within it once the 80-byte gap 4a (1,280 bitcells) is dropped.
	l := New(g, 0, 0)
	if l.LongTrack {
		t.Fatal("dropping gap 4a should have avoided the long-track path")
	}
	if l.Gap4a != 0 {
		t.Fatalf("Gap4a = %d, want 0 (dropped)", l.Gap4a)
	}
	if l.TrackLenBc != 200000 {
		t.Fatalf("TrackLenBc = %d, want the 200000 standard", l.TrackLenBc)
	}

	// Three more bytes of gap 3 per sector pushes the track past what
	// dropping gap 4a can recover; now it must extend.
	g.Gap3 = 81
	l = New(g, 0, 0)
	if !l.LongTrack {
		t.Fatal("expected the long-track path once gap 4a is not enough")
	}
	if l.Gap4a != g.Gap4a {
		t.Fatalf("Gap4a = %d, want %d (kept on a long track)", l.Gap4a, g.Gap4a)
	}
	if l.TrackLenBc%32 != 0 || l.TrackLenBc <= 200000 {
		t.Fatalf("TrackLenBc = %d, want an extended multiple of 32", l.TrackLenBc)
	}
}
