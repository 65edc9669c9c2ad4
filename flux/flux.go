// Package flux turns a stream of raw bitcells into the integer tick
// intervals between consecutive flux transitions, the shared read-path
// tail behind every image format.
package flux

import "github.com/sergev/fluxcore/ring"

// Emitter consumes bitcells from a ring.BitcellRing and produces flux
// transition intervals. TicksSinceFlux carries the low bits of
// accumulated time across calls, a C-style running-accumulator idiom
// rather than resetting it every call.
type Emitter struct {
	Ring           *ring.BitcellRing
	TicksPerCell   int
	ticksSinceFlux int
}

// NewEmitter builds an Emitter over ring driven at ticksPerCell ticks per
// bitcell.
func NewEmitter(r *ring.BitcellRing, ticksPerCell int) *Emitter {
	return &Emitter{Ring: r, TicksPerCell: ticksPerCell}
}

// Produce drains cells from the ring into out, stopping when out is full or
// the ring no longer holds at least 3 bytes of cells (the guard
// against reading a cell the producer hasn't committed yet). It returns the
// number of intervals written.
func (e *Emitter) Produce(out []int) int {
	produced := 0
	pos := e.Ring.Cons
	for produced < len(out) && e.Ring.Prod-pos >= 24 {
		bit := e.Ring.ByteAt(pos) & 1
		pos++
		e.ticksSinceFlux += e.TicksPerCell
		if bit != 0 {
			out[produced] = (e.ticksSinceFlux >> 4) - 1
			e.ticksSinceFlux &= 0xf
			produced++
		}
	}
	e.Ring.Cons = pos
	return produced
}

// Reset zeroes the accumulated sub-cell remainder, used when a track switch
// discards in-flight flux state.
func (e *Emitter) Reset() {
	e.ticksSinceFlux = 0
}
