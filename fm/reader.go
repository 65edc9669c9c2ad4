package fm

import (
	"errors"

	"github.com/sergev/fluxcore/crc16"
)

// ErrNoMoreSectors signals scanTrack ran off the end of available data
// without finding another DAM.
var ErrNoMoreSectors = errors.New("fm: no more sectors")

// Reader decodes an FM bitstream (MSB-first, one data bit per two raw
// bits) captured during write-back, mirroring mfm.Reader's shape but with
// FM's always-1 clock bit.
type Reader struct {
	data []byte
	pos  int // bit position into data
}

// NewReader wraps raw FM-encoded bytes (2 bytes per decoded data byte).
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) readRawBit() (int, bool) {
	byteIdx := r.pos / 8
	if byteIdx >= len(r.data) {
		return 0, false
	}
	bit := int(r.data[byteIdx]>>uint(7-r.pos%8)) & 1
	r.pos++
	return bit, true
}

// readDataByte discards the clock bit and keeps the data bit for each of
// the 8 cells making up one decoded byte.
func (r *Reader) readDataByte() (byte, bool) {
	var b byte
	for i := 0; i < 8; i++ {
		if _, ok := r.readRawBit(); !ok {
			return 0, false
		}
		bit, ok := r.readRawBit()
		if !ok {
			return 0, false
		}
		b = (b << 1) | byte(bit)
	}
	return b, true
}

// scanMark advances past the next address mark and returns its data byte.
// A mark is a sync-preamble zero cell (raw 0xAAAA) followed by a cell whose
// extracted clock pattern is 0xC7; matching on the full 32-bit window keeps
// the reader cell-aligned, so the data bytes that follow decode cleanly.
func (r *Reader) scanMark() (markByte byte, ok bool) {
	var history uint32
	for {
		bit, have := r.readRawBit()
		if !have {
			return 0, false
		}
		history = history<<1 | uint32(bit)
		if (history>>16)&0xFFFF != 0xAAAA {
			continue
		}
		cell := uint16(history)
		var clk, dat byte
		for i := 15; i >= 1; i -= 2 {
			clk = clk<<1 | byte(cell>>uint(i))&1
			dat = dat<<1 | byte(cell>>uint(i-1))&1
		}
		if clk == markClock {
			return dat, true
		}
	}
}

// ReadSector scans forward for the next IDAM/DAM pair and returns the
// logical sector id and payload, or an error if CRC fails or no more
// sectors remain.
func (r *Reader) ReadSector(cyl, head, secSize int) (int, []byte, error) {
	mark, ok := r.scanMark()
	if !ok || mark != 0xFE {
		return -1, nil, ErrNoMoreSectors
	}
	idam := make([]byte, 6) // cyl, head, sec, secNo, crcHi, crcLo
	for i := range idam {
		b, ok := r.readDataByte()
		if !ok {
			return -1, nil, ErrNoMoreSectors
		}
		idam[i] = b
	}
	check := crc16.CCITT(crc16.Init, []byte{0xFE})
	check = crc16.CCITT(check, idam)
	if check != 0 {
		return -1, nil, errBadCRC
	}
	sector := int(idam[2])

	mark, ok = r.scanMark()
	if !ok || mark != 0xFB {
		return -1, nil, ErrNoMoreSectors
	}
	payload := make([]byte, secSize+2)
	for i := range payload {
		b, ok := r.readDataByte()
		if !ok {
			return -1, nil, ErrNoMoreSectors
		}
		payload[i] = b
	}
	dcheck := crc16.CCITT(crc16.Init, []byte{0xFB})
	dcheck = crc16.CCITT(dcheck, payload)
	if dcheck != 0 {
		return sector, nil, errBadCRC
	}
	return sector, payload[:secSize], nil
}

var errBadCRC = errors.New("fm: bad CRC")

// CountSectors scans the whole buffer counting valid IDAMs, for geometry
// probing the same way mfm.Reader.CountSectorsIBMPC does.
func (r *Reader) CountSectors(cyl, head, secSize int) int {
	saved := r.pos
	defer func() { r.pos = saved }()

	n := 0
	for {
		_, _, err := r.ReadSector(cyl, head, secSize)
		if err != nil {
			break
		}
		n++
	}
	return n
}
