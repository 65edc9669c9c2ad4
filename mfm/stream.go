package mfm

import (
	"github.com/sergev/fluxcore/crc16"
	"github.com/sergev/fluxcore/ring"
)

// dataChunkBytes bounds how many source-data bytes a single Data-phase or
// trailing-gap chunk covers, so one Step call never needs more ring space
// than one chunk requires; IDAM/DAM-pre/DAM-post phases are small enough
// to stay atomic.
const dataChunkBytes = 1024

// TrackStream incrementally feeds one IBM-PC geometry track's bitcells into
// a ring.BitcellRing, one IDAM/gap2/DAM+data/data-CRC/gap3 phase (or, within
// the Data and trailing-gap phases, one dataChunkBytes-bounded slice) per
// Step call. The phase numbering follows the post-index-gap / per-sector /
// final-gap shape of FlashFloppy's img.c decode_pos state machine: phase 0
// is the post-index gap; each sector then contributes its IDAM, gap2, one
// DAM+data phase per dataChunkBytes of payload, the data CRC, and gap3 (five
// phases for sectors of up to dataChunkBytes); the last phases are the
// trailing gap filling out the track.
//
// The wire bytes are rendered once up front with the existing byte-buffer
// Writer (the exact bytes Step hands the ring are identical to
// EncodeTrackGeometry's output), but Step only ever exposes bounded,
// phase-aligned slices of it to the ring, checking Space() before each one
// and refusing to advance when there isn't room -- the back-pressure
// contract a live encoder would need to honor against a consumer draining
// the ring at the drive's actual rotation speed.
type TrackStream struct {
	data   []byte
	bounds []int
	idx    int
	pushed int
}

// NewTrackStream renders an IBM-PC geometry track and records its phase
// boundaries for Step to walk. sectorOf and tg match EncodeTrackGeometry;
// maxHalfBits bounds the track length in bits.
func NewTrackStream(sectorOf func(logicalID int) []byte, tg TrackGeometry, maxHalfBits int) *TrackStream {
	w := NewWriter(maxHalfBits)
	s := &TrackStream{}

	mark := func() { s.bounds = append(s.bounds, len(w.getData())) }

	w.writeGap(tg.Gap4a)
	if tg.HasIAM {
		w.writeIndexMarker()
		w.writeGap(50)
	}
	mark() // phase 0: post-index gap

	for _, logical := range tg.SecMap {
		w.writeMarker()
		w.writeByte(0xFE)
		w.writeByte(byte(tg.Cyl))
		w.writeByte(byte(tg.Head))
		w.writeByte(byte(logical))
		w.writeByte(byte(tg.SecNo))
		sum := crc16.CCITT(crc16.Init, []byte{0xA1, 0xA1, 0xA1, 0xFE, byte(tg.Cyl), byte(tg.Head), byte(logical), byte(tg.SecNo)})
		w.writeByte(byte(sum >> 8))
		w.writeByte(byte(sum))
		for i := 0; i < tg.PostCRCSyncs; i++ {
			w.writeA1()
		}
		mark() // IDAM phase

		w.writeGap(tg.Gap2)
		mark() // gap2 phase

		w.writeMarker()
		w.writeByte(0xFB)
		data := sectorOf(logical)
		dsum := crc16.CCITT(crc16.Init, []byte{0xA1, 0xA1, 0xA1, 0xFB})
		dsum = crc16.CCITT(dsum, data)
		for off := 0; off < len(data); off += dataChunkBytes {
			end := off + dataChunkBytes
			if end > len(data) {
				end = len(data)
			}
			for _, b := range data[off:end] {
				w.writeByte(b)
			}
			mark() // DAM+data sub-chunk
		}
		w.writeByte(byte(dsum >> 8))
		w.writeByte(byte(dsum))
		for i := 0; i < tg.PostCRCSyncs; i++ {
			w.writeA1()
		}
		mark() // DAM CRC

		w.writeGap(tg.Gap3)
		mark() // gap3 phase
	}

	fillBytes := maxHalfBits/8 - len(w.getData())
	for fillBytes > 0 {
		n := fillBytes
		if n > dataChunkBytes {
			n = dataChunkBytes
		}
		w.writeGap(n)
		mark() // trailing-gap sub-chunk
		fillBytes -= n
	}

	s.data = w.getData()
	return s
}

// Step emits the next phase (or Data/trailing-gap sub-chunk) into r,
// returning false without emitting anything if the ring lacks space --
// the caller should retry on a later call once the consumer has drained
// more of the ring.
func (s *TrackStream) Step(r *ring.BitcellRing) bool {
	if s.Done() {
		return false
	}
	end := s.bounds[s.idx]
	n := end - s.pushed
	if r.Space() < uint32(n*8) {
		return false
	}
	for i := s.pushed; i < end; i++ {
		r.PutByte(s.data[i])
	}
	s.pushed = end
	s.idx++
	return true
}

// Done reports whether every phase has been pushed into the ring.
func (s *TrackStream) Done() bool {
	return s.idx >= len(s.bounds)
}
