package hfe

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"

	"github.com/sergev/fluxcore/fio"
)

// On-disk HFEv3 opcode codes. File bytes are stored LSB-first, so an opcode
// byte reads as low nibble 0xF (the reserved discriminator) with the
// bit-reversed 4-bit code in the high nibble.
const (
	opNop     = 0
	opRand    = 2
	opBitrate = 4
	opIndex   = 8
	opSkip    = 12
)

// writerBatchSecs is the read-modify-write window: eight 512-byte blocks
// per batch.
const writerBatchSecs = 8

// TrackWriter rewrites one side of one HFE track in place, batch by batch:
// each batch is read from the image, incoming bitcells are laid over this
// side's 256-byte halves, and the batch is written back once the write
// position leaves its window. On a v3 image, opcodes already present in
// the track survive the overwrite: nop and index are preserved outright,
// bitrate and skip keep both of their bytes (plus skip's partially-skipped
// data byte) while the write position steps past them, and only rand --
// a flaky byte -- is replaced with incoming data. Opcodes are never
// truncated: a write that would start inside one is nudged past it.
type TrackWriter struct {
	f    fio.File
	isV3 bool
	side int

	trkOff int64 // file offset of the track's first 512-byte block
	trkLen int   // per-side track length in bytes

	trkPos     int // byte position within this side's track data
	writeStart int
	wrapped    bool

	batch    []byte
	batchOff int // offset of batch[0] within the doubled track area
	batchLen int
	dirty    bool

	closer interface{ Close() error }
}

// OpenTrackWriter opens the HFE image at path for read-modify-write and
// positions a TrackWriter at the start of (cyl, side)'s track data.
func OpenTrackWriter(path string, cyl, side int) (*TrackWriter, error) {
	f, err := fio.Open(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	hdr := make([]byte, BlockSize)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		f.Close()
		return nil, fio.Die("read hfe header", err)
	}

	sig := string(hdr[0:8])
	isV3 := sig == HFEv3Signature
	if !isV3 && sig != HFEv1Signature {
		f.Close()
		return nil, fmt.Errorf("not an HFE image: bad signature %q", sig)
	}
	nrTracks := int(hdr[9])
	nrSides := int(hdr[10])
	if cyl < 0 || cyl >= nrTracks {
		f.Close()
		return nil, fmt.Errorf("cylinder %d out of range (%d tracks)", cyl, nrTracks)
	}
	if side < 0 || side >= nrSides {
		f.Close()
		return nil, fmt.Errorf("side %d out of range (%d sides)", side, nrSides)
	}

	listOff := int64(binary.LittleEndian.Uint16(hdr[18:20])) * BlockSize
	entry := make([]byte, 4)
	if _, err := f.ReadAt(entry, listOff+int64(cyl)*4); err != nil {
		f.Close()
		return nil, fio.Die("read hfe track list", err)
	}
	offBlocks := binary.LittleEndian.Uint16(entry[0:2])
	lenBytes := binary.LittleEndian.Uint16(entry[2:4])
	trkLen := int(lenBytes) / 2
	if trkLen == 0 {
		f.Close()
		return nil, fmt.Errorf("track %d has zero length", cyl)
	}

	return &TrackWriter{
		f:      f,
		isV3:   isV3,
		side:   side,
		trkOff: int64(offBlocks) * BlockSize,
		trkLen: trkLen,
		closer: f,
	}, nil
}

// SetWriteStart seeds the write position from a rotational byte offset,
// for writes that do not begin at the index. Call before the first
// WriteCells.
func (tw *TrackWriter) SetWriteStart(pos int) {
	tw.trkPos = pos % tw.trkLen
	tw.writeStart = tw.trkPos
}

// loadBatch reads the batch window covering the current write position and
// nudges the position past any opcode it would otherwise start inside.
func (tw *TrackWriter) loadBatch() error {
	tw.batchOff = (tw.trkPos &^ 255) << 1
	n := writerBatchSecs * BlockSize
	if max := ((tw.trkLen*2 + 511) &^ 511) - tw.batchOff; n > max {
		n = max
	}
	if cap(tw.batch) < n {
		tw.batch = make([]byte, n)
	}
	tw.batch = tw.batch[:n]
	tw.batchLen = n
	if _, err := tw.f.ReadAt(tw.batch, tw.trkOff+int64(tw.batchOff)); err != nil {
		return fio.Die("read hfe track batch", err)
	}
	tw.skipPartialOpcode()
	return nil
}

// skipPartialOpcode avoids writing in the middle of an opcode, which would
// most likely occur at the start of the track: if the byte one (or, for
// skip, two) positions back opens a two-byte opcode, advance past its
// remaining bytes instead of truncating it.
func (tw *TrackWriter) skipPartialOpcode() {
	rel := tw.trkPos & 255
	if !tw.isV3 || rel < 1 {
		return
	}
	half := tw.side * 256
	if rel >= 2 {
		if b := tw.batch[half+rel-2]; b&0x0f == 0x0f && b>>4 == opSkip {
			tw.trkPos++
		}
	}
	if b := tw.batch[half+rel-1]; b&0x0f == 0x0f {
		switch b >> 4 {
		case opSkip:
			tw.trkPos += 2
		case opBitrate:
			tw.trkPos++
		}
	}
}

// WriteCells lays raw MSB-first bitcell bytes over the track at the current
// write position, wrapping at the end of the revolution. Cells are consumed
// only at data positions; opcode positions pass under the write untouched
// (except rand, which is replaced).
func (tw *TrackWriter) WriteCells(cells []byte) error {
	c := 0
	for c < len(cells) {
		if tw.batchLen == 0 {
			if err := tw.loadBatch(); err != nil {
				return err
			}
		}

		off := tw.trkPos
		// Limit the step to the end of the current 256-byte block and the
		// end of the track.
		nr := len(cells) - c
		if n := 256 - off&255; nr > n {
			nr = n
		}
		if n := tw.trkLen - off; nr > n {
			nr = n
		}

		// Reload if the required block is outside the batch window.
		batchOff := (off &^ 255) << 1
		if batchOff < tw.batchOff || batchOff >= tw.batchOff+tw.batchLen {
			if err := tw.flushBatch(); err != nil {
				return err
			}
			continue
		}

		w := tw.side*256 + (batchOff - tw.batchOff) + off&255
		i := 0
		for i < nr {
			if tw.isV3 && tw.batch[w]&0x0f == 0x0f {
				switch tw.batch[w] >> 4 {
				case opSkip:
					// Keep the opcode, its argument, and the partially
					// skipped byte that follows; those bits are unlikely
					// to matter.
					w += 3
					i += 3
					continue
				case opBitrate:
					// Keep both bytes; the track is written at the single
					// rate observed at entry.
					w += 2
					i += 2
					continue
				case opRand:
					// Flaky byte: replace with real data.
				default:
					// nop, index, and anything unrecognized survive.
					w++
					i++
					continue
				}
			}
			tw.batch[w] = bitReverse(cells[c])
			w++
			c++
			i++
		}
		tw.dirty = true

		tw.trkPos += i // may exceed nr by a truncated trailing opcode
		if tw.trkPos >= tw.trkLen {
			tw.trkPos = 0
			tw.wrapped = true
		}
	}
	return nil
}

func (tw *TrackWriter) flushBatch() error {
	if tw.dirty {
		if _, err := tw.f.WriteAt(tw.batch[:tw.batchLen], tw.trkOff+int64(tw.batchOff)); err != nil {
			return fio.Die("write hfe track batch", err)
		}
	}
	tw.batchLen = 0
	tw.dirty = false
	return nil
}

// Close flushes the in-flight batch, syncs the image, and logs the wrap
// condition when a wrapped write ran past its own start.
func (tw *TrackWriter) Close() error {
	err := tw.flushBatch()
	if err == nil {
		err = tw.f.Sync()
	}
	if tw.wrapped && tw.trkPos > tw.writeStart {
		log.Printf("hfe: write wrapped (%d > %d)", tw.trkPos, tw.writeStart)
	}
	if tw.closer != nil {
		if cerr := tw.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// WriteTrackBits rewrites one side of one track of the HFE image at path
// with the given raw MSB-first bitcells, starting at the index, preserving
// any v3 opcodes already recorded in the track.
func WriteTrackBits(path string, cyl, side int, cells []byte) error {
	tw, err := OpenTrackWriter(path, cyl, side)
	if err != nil {
		return err
	}
	if err := tw.WriteCells(cells); err != nil {
		tw.Close()
		return err
	}
	return tw.Close()
}
