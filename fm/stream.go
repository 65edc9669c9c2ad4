package fm

import (
	"github.com/sergev/fluxcore/crc16"
	"github.com/sergev/fluxcore/ring"
)

// dataChunkBytes mirrors mfm.TrackStream's per-chunk cap: the Data and
// trailing-gap phases are split into pieces this small so a single Step
// call never demands more ring space than one chunk needs.
const dataChunkBytes = 1024

// TrackStream is FM's counterpart to mfm.TrackStream: it renders a full FM
// track once with the existing byte-buffer Writer, then lets Step hand the
// rendered bytes to a ring.BitcellRing one gap4a/IDAM/DAM-data/gap3 phase at
// a time, checking Space() and refusing to advance when the ring has no
// room for the next phase.
type TrackStream struct {
	data   []byte
	bounds []int
	idx    int
	pushed int
}

// NewTrackStream renders an FM track following EncodeTrack's layout and
// records its phase boundaries for Step to walk. sectorOf receives the
// logical (base-inclusive) sector id.
func NewTrackStream(secMap []int, sectorOf func(logicalID int) []byte, cyl, head, secNo, gap3 int, maxTrackSize int) *TrackStream {
	w := NewWriter(maxTrackSize)
	s := &TrackStream{}

	mark := func() { s.bounds = append(s.bounds, len(w.data)) }

	w.writeGap(Gap4a)
	mark() // phase 0: gap4a

	for _, logical := range secMap {
		w.writeSync(GapSync)
		w.writeMark(0xFE)
		idam := []byte{byte(cyl), byte(head), byte(logical), byte(secNo)}
		crc := crc16.CCITT(crc16.Init, []byte{0xFE})
		crc = crc16.CCITT(crc, idam)
		for _, b := range idam {
			w.writeByte(b)
		}
		w.writeByte(byte(crc >> 8))
		w.writeByte(byte(crc))
		mark() // IDAM phase

		w.writeGap(Gap2)
		mark() // gap2 phase

		w.writeSync(GapSync)
		w.writeMark(0xFB)
		data := sectorOf(logical)
		dcrc := crc16.CCITT(crc16.Init, []byte{0xFB})
		dcrc = crc16.CCITT(dcrc, data)
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
		w.writeByte(byte(dcrc >> 8))
		w.writeByte(byte(dcrc))
		mark() // DAM CRC

		w.writeGap(gap3)
		mark() // gap3 phase
	}

	fillBytes := w.maxTrackSize - len(w.data)
	for fillBytes > 0 {
		n := fillBytes / 2
		if n <= 0 {
			break
		}
		if n > dataChunkBytes {
			n = dataChunkBytes
		}
		w.writeGap(n)
		mark() // trailing-gap sub-chunk
		fillBytes = w.maxTrackSize - len(w.data)
	}

	s.data = w.data
	return s
}

// Step emits the next phase (or Data/trailing-gap sub-chunk) into r,
// returning false without emitting anything if the ring lacks space.
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
