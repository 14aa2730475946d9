// Package placement chooses non-overlapping channel ranges inside a carrier
// for a chunk, biased toward low-tone regions, tracking occupancy in a
// channel bitmap.
//
// Grounded on zanicar-stegano/png/png.go's sequential byte-offset walk,
// generalized from "always the next free byte" to a weighted-random,
// collision-avoiding draw over three luminance bands.
package placement

import (
	"crypto/rand"
	"encoding/binary"
	"math"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/bits"
)

// DefaultMaxAttempts bounds how many draws the engine makes before giving up
// on a carrier for one chunk, matching spec section 6's documented default.
// Callers may override it via Place's maxAttempts parameter (wired from
// Config.PlacementMaxAttempts).
const DefaultMaxAttempts = 100

// Weights holds the relative draw weights for the three luminance bands.
type Weights struct {
	Low, Mid, High float64
}

// DefaultWeights matches spec section 6's documented placement-draw weights.
var DefaultWeights = Weights{Low: 4, Mid: 2, High: 1}

// Bands gives the per-band channel counts of a carrier, in the
// band-concatenated channel space the placement engine and distributor index
// into (spec section 4.6: "bitmap counts band channels, NOT pixels×sequence").
type Bands struct {
	Low, Mid, High int
}

func (b Bands) total() int { return b.Low + b.Mid + b.High }

// Position is a placed [start, end) channel range.
type Position struct {
	Start, End int
}

// randUint32 draws a uniformly random 32-bit value from a CSPRNG, used only
// to pick bands and in-band offsets; it has no bearing on the deterministic,
// stored channel_sequence the distributor computes separately.
func randUint32() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return binary.BigEndian.Uint32(buf[:])
}

// randFloat64 returns a uniform value in [0, 1).
func randFloat64() float64 {
	return float64(randUint32()) / float64(math.MaxUint32+1)
}

// drawBand picks a band by weighted random draw, skipping empty bands.
func drawBand(b Bands, w Weights) pixveil.Tone {
	total := 0.0
	if b.Low > 0 {
		total += w.Low
	}
	if b.Mid > 0 {
		total += w.Mid
	}
	if b.High > 0 {
		total += w.High
	}
	if total <= 0 {
		return pixveil.ToneLow
	}
	r := randFloat64() * total
	if b.Low > 0 {
		if r < w.Low {
			return pixveil.ToneLow
		}
		r -= w.Low
	}
	if b.Mid > 0 {
		if r < w.Mid {
			return pixveil.ToneMid
		}
		r -= w.Mid
	}
	return pixveil.ToneHigh
}

// bandBase returns the absolute channel offset of the start of tone t's
// band and the band's size: the low band starts at 0, the mid band at low,
// and the high band at low+mid, so the bands end at low, low+mid and
// low+mid+high respectively.
func bandBase(b Bands, t pixveil.Tone) (base, size int) {
	switch t {
	case pixveil.ToneLow:
		return 0, b.Low
	case pixveil.ToneMid:
		return b.Low, b.Mid
	default:
		return b.Low + b.Mid, b.High
	}
}

// neededChannels returns ceil(chunkLen*8 / bitsPerChannel).
func neededChannels(chunkLen, bitsPerChannel int) int {
	totalBits := chunkLen * 8
	return (totalBits + bitsPerChannel - 1) / bitsPerChannel
}

// Place runs up to maxAttempts draws against used, the carrier's occupancy
// bitmap, returning the first non-overlapping, in-bounds position found. A
// maxAttempts of 0 or less falls back to DefaultMaxAttempts.
func Place(bands Bands, chunkLen, bitsPerChannel int, used *bits.Bitmap, w Weights, maxAttempts int) (Position, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	total := bands.total()
	needed := neededChannels(chunkLen, bitsPerChannel)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		band := drawBand(bands, w)
		base, size := bandBase(bands, band)
		if size == 0 {
			continue
		}
		offset := int(randUint32() % uint32(size))
		start := base + offset

		if start+needed > total {
			continue
		}
		if !used.RangeFree(start, needed) {
			continue
		}
		used.SetRange(start, needed)
		return Position{Start: start, End: start + needed}, nil
	}
	return Position{}, pixveil.ErrNoPosition
}
