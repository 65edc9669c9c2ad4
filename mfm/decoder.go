package mfm

// Decoder recovers an MFM bitcell stream from flux transition timestamps.
// Unlike a free-running PLL, it resynchronizes its internal clock to every
// observed transition, so jitter on one transition does not accumulate into
// the next bitcell boundary.
type Decoder struct {
	transitions []uint64
	idx         int
	periodNs    float64
	elapsedNs   float64

	// ClockedZeros counts bits returned as zero because no transition fell
	// inside the expected bitcell window. It keeps climbing once the
	// transition stream is exhausted, which callers use to detect EOF.
	ClockedZeros int
}

// NewDecoder creates a Decoder over flux transition times (nanoseconds,
// relative to track start) produced at bitRateKhz.
func NewDecoder(transitions []uint64, bitRateKhz uint16) *Decoder {
	bitRateBps := float64(bitRateKhz) * 1000.0 * 2
	return &Decoder{
		transitions: transitions,
		periodNs:    1e9 / bitRateBps,
	}
}

// IsDone reports whether every flux transition has been consumed.
func (d *Decoder) IsDone() bool {
	return d.idx >= len(d.transitions)
}

// NextBit advances the decoder by one bitcell, returning true (an MFM "1")
// if a flux transition fell within that cell's window, false otherwise.
// Once transitions are exhausted it keeps returning clocked zeros rather
// than panicking, so callers can safely over-read a track.
func (d *Decoder) NextBit() bool {
	d.elapsedNs += d.periodNs
	if d.idx < len(d.transitions) {
		target := float64(d.transitions[d.idx])
		if target <= d.elapsedNs+d.periodNs/2 {
			d.elapsedNs = target
			d.idx++
			return true
		}
	}
	d.ClockedZeros++
	return false
}
