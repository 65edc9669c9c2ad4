package ring

import (
	"bytes"
	"testing"
)

func TestBitcellRingSpaceAvail(t *testing.T) {
	r := NewBitcellRing(8) // 64 bitcells
	if r.Space() != 64 || r.Avail() != 0 {
		t.Fatalf("fresh ring: Space=%d Avail=%d", r.Space(), r.Avail())
	}
	r.PutByte(0xA5)
	if r.Space() != 56 || r.Avail() != 8 {
		t.Fatalf("after one byte: Space=%d Avail=%d", r.Space(), r.Avail())
	}
	r.Cons += 8
	if r.Space() != 64 || r.Avail() != 0 {
		t.Fatalf("after consume: Space=%d Avail=%d", r.Space(), r.Avail())
	}
}

// TestBitcellRingByteAtIsMSBFirst checks that bitcell position 0 of a byte
// is its most-significant bit, the order the encoders produce and the flux
// emitter consumes.
func TestBitcellRingByteAtIsMSBFirst(t *testing.T) {
	r := NewBitcellRing(8)
	r.PutByte(0x80) // only the first bitcell set
	if r.ByteAt(0)&1 != 1 {
		t.Fatal("bitcell 0 of 0x80 must be 1")
	}
	for pos := uint32(1); pos < 8; pos++ {
		if r.ByteAt(pos)&1 != 0 {
			t.Fatalf("bitcell %d of 0x80 must be 0", pos)
		}
	}

	r.Reset()
	r.PutByte(0x01) // only the last bitcell set
	if r.ByteAt(7)&1 != 1 {
		t.Fatal("bitcell 7 of 0x01 must be 1")
	}
}

// TestBitcellRingCursorWrap drives the monotonic cursors past the buffer
// capacity several times over; the masked byte addressing must keep
// producing the most recent write.
func TestBitcellRingCursorWrap(t *testing.T) {
	r := NewBitcellRing(4) // 32 bitcells
	for i := 0; i < 40; i++ {
		for r.Space() < 8 {
			r.Cons += 8
		}
		r.PutByte(byte(i))
		idx := (r.Prod - 8) / 8
		if got := r.RawByte(idx); got != byte(i) {
			t.Fatalf("iteration %d: RawByte = %d", i, got)
		}
	}
}

func TestBitcellRingPutRaw16(t *testing.T) {
	r := NewBitcellRing(8)
	r.PutRaw16(0x4489)
	if r.RawByte(0) != 0x44 || r.RawByte(1) != 0x89 {
		t.Fatalf("PutRaw16 stored %02x %02x, want 44 89", r.RawByte(0), r.RawByte(1))
	}
	if r.Avail() != 16 {
		t.Fatalf("Avail = %d, want 16", r.Avail())
	}
}

func TestNewRingRejectsNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for capacity 24")
		}
	}()
	NewBitcellRing(24)
}

func TestDataRingPushPop(t *testing.T) {
	r := NewDataRing(16)
	in := []byte{1, 2, 3, 4, 5}
	r.Push(in)
	if r.Avail() != 5 {
		t.Fatalf("Avail = %d, want 5", r.Avail())
	}

	out := make([]byte, 8)
	n := r.Pop(out)
	if n != 5 || !bytes.Equal(out[:5], in) {
		t.Fatalf("Pop = %d %v", n, out[:n])
	}
	if r.Avail() != 0 {
		t.Fatalf("Avail after drain = %d", r.Avail())
	}
}

func TestDataRingPeekAdvance(t *testing.T) {
	r := NewDataRing(8)
	r.Push([]byte{0xAA, 0xBB, 0xCC})
	if r.PeekByte(1) != 0xBB {
		t.Fatalf("PeekByte(1) = %02x", r.PeekByte(1))
	}
	r.Advance(2)
	if r.PeekByte(0) != 0xCC {
		t.Fatalf("PeekByte after Advance = %02x", r.PeekByte(0))
	}
	if r.Avail() != 1 {
		t.Fatalf("Avail = %d, want 1", r.Avail())
	}
}

// TestDataRingWrap pushes across the capacity boundary and checks the
// oldest-first read order survives the wrap.
func TestDataRingWrap(t *testing.T) {
	r := NewDataRing(8)
	r.Push([]byte{1, 2, 3, 4, 5, 6})
	buf := make([]byte, 4)
	r.Pop(buf)
	r.Push([]byte{7, 8, 9, 10}) // crosses the end of the buffer
	out := make([]byte, 6)
	n := r.Pop(out)
	want := []byte{5, 6, 7, 8, 9, 10}
	if n != 6 || !bytes.Equal(out, want) {
		t.Fatalf("Pop = %v, want %v", out[:n], want)
	}
}
