package fm

import "github.com/sergev/fluxcore/crc16"

// Writer assembles an FM track byte-wise into an in-memory buffer, the same
// batch-then-emit shape mfm.Writer uses: nothing streams through a ring
// directly here, the HFE/image layer chunks this buffer into the
// BitcellRing afterward.
type Writer struct {
	data         []byte
	maxTrackSize int
}

// NewWriter allocates a Writer bounded to maxTrackSize encoded bytes.
func NewWriter(maxTrackSize int) *Writer {
	return &Writer{maxTrackSize: maxTrackSize}
}

func (w *Writer) putCell(cell uint16) {
	w.data = append(w.data, byte(cell>>8), byte(cell))
}

func (w *Writer) writeByte(b byte) {
	w.putCell(fmTab[b])
}

func (w *Writer) writeGap(n int) {
	for i := 0; i < n; i++ {
		w.writeByte(GapFill)
	}
}

// writeSync writes the zero-byte preamble (cells of 0xAAAA) that precedes
// every address mark; the decoder keys its mark scan off this run.
func (w *Writer) writeSync(n int) {
	for i := 0; i < n; i++ {
		w.writeByte(0)
	}
}

func (w *Writer) writeMark(b byte) {
	w.putCell(sync(b))
}

// EncodeTrack writes a full FM track, one IDAM/DAM pair per secMap entry,
// following FM's shape: no IAM, GAP_SYNC=6, GAP_2=11, GAP_4A=16, fixed
// 250kb/s. sectorOf receives the logical (base-inclusive) sector id, the
// same contract mfm.EncodeTrackGeometry's callback has.
func (w *Writer) EncodeTrack(secMap []int, sectorOf func(logicalID int) []byte, cyl, head, secNo, gap3 int) []byte {
	w.writeGap(Gap4a)

	for _, logical := range secMap {
		// IDAM
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
		w.writeGap(Gap2)

		// DAM
		w.writeSync(GapSync)
		w.writeMark(0xFB)
		data := sectorOf(logical)
		dcrc := uint16(crc16.Init)
		dcrc = crc16.CCITT(dcrc, []byte{0xFB})
		dcrc = crc16.CCITT(dcrc, data)
		for _, b := range data {
			w.writeByte(b)
		}
		w.writeByte(byte(dcrc >> 8))
		w.writeByte(byte(dcrc))
		w.writeGap(gap3)
	}

	fill := w.maxTrackSize - len(w.data)
	if fill > 0 {
		w.writeGap(fill / 2)
	}
	return w.data
}
