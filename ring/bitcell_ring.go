// Package ring implements the fixed-capacity SPSC ring buffers shared by the
// encoder/decoder state machines: a bit-granular ring for raw bitcells and a
// byte-granular ring for pre-fetched sector or HFE block data.
package ring

import "fmt"

// BitcellRing is a power-of-two-capacity ring buffer of raw bitcells, one bit
// per cell, packed 8 per byte. The foreground encode/decode task owns Prod,
// the flux I/O tail owns Cons; both cursors are monotonic bit counts modulo
// 2^32, matching the firmware's wraparound arithmetic.
type BitcellRing struct {
	buf  []byte // len(buf) is a power of two; holds buf*8 bitcells
	Prod uint32 // bit-granular producer cursor
	Cons uint32 // bit-granular consumer cursor
}

// NewBitcellRing allocates a ring able to hold capacityBytes*8 bitcells.
// capacityBytes must be a power of two.
func NewBitcellRing(capacityBytes int) *BitcellRing {
	if capacityBytes <= 0 || capacityBytes&(capacityBytes-1) != 0 {
		panic(fmt.Sprintf("ring: capacity %d is not a power of two", capacityBytes))
	}
	return &BitcellRing{buf: make([]byte, capacityBytes)}
}

func (r *BitcellRing) mask() uint32 { return uint32(len(r.buf)) - 1 }

// Len returns the byte capacity of the ring.
func (r *BitcellRing) Len() int { return len(r.buf) }

// Space returns the number of bitcells that can still be produced before
// catching up with the consumer.
func (r *BitcellRing) Space() uint32 {
	return uint32(len(r.buf))*8 - (r.Prod - r.Cons)
}

// Avail returns the number of bitcells available to the consumer.
func (r *BitcellRing) Avail() uint32 {
	return r.Prod - r.Cons
}

// Reset zeroes both cursors; used on track switch.
func (r *BitcellRing) Reset() {
	r.Prod = 0
	r.Cons = 0
}

// PutByte appends one byte (8 bitcells) at the producer cursor. The caller
// must have checked Space() >= 8 first.
func (r *BitcellRing) PutByte(b byte) {
	idx := (r.Prod / 8) & r.mask()
	r.buf[idx] = b
	r.Prod += 8
}

// PutRaw16 appends a raw 16-bit MFM/FM cell (two bytes) at the producer
// cursor, high byte first. The caller must have checked Space() >= 16.
func (r *BitcellRing) PutRaw16(cell uint16) {
	r.PutByte(byte(cell >> 8))
	r.PutByte(byte(cell))
}

// ByteAt returns the byte containing bitcell index pos (absolute bit count),
// shifted so bit 0 of the result is the bitcell at pos. Bytes enter the
// ring MSB-first, so position 0 within a byte is its bit 7.
func (r *BitcellRing) ByteAt(pos uint32) byte {
	idx := (pos / 8) & r.mask()
	shift := 7 - pos%8
	return r.buf[idx] >> shift
}

// RawByte returns the raw byte at the given bitcell-aligned byte index
// (byteIndex = pos/8), without any shift.
func (r *BitcellRing) RawByte(byteIndex uint32) byte {
	return r.buf[byteIndex&r.mask()]
}

// SetRawByte overwrites the raw byte at the given bitcell-aligned byte index.
func (r *BitcellRing) SetRawByte(byteIndex uint32, b byte) {
	r.buf[byteIndex&r.mask()] = b
}

// PhaseStreamer incrementally produces a track's bitcells into a
// BitcellRing, one IDAM/DAM/gap phase (or, for the Data and trailing-gap
// phases, one bounded chunk of a phase) per Step call. Step returns false
// without emitting anything when the ring lacks space for the next phase,
// the same back-pressure discipline hfe_read_track's bc_space check
// enforces, and Done reports whether the whole track has been produced.
type PhaseStreamer interface {
	Step(r *BitcellRing) bool
	Done() bool
}
