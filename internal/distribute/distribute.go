// Package distribute assigns chunks to carrier images under per-carrier
// capacity and chunk-count limits, computing a deterministic channel
// sequence for each placed chunk.
//
// Grounded on zanicar-stegano/png/png.go's single-carrier sequential write,
// generalized to many carriers ranked by tone, per spec section 4.6.
package distribute

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/bits"
	"github.com/pixveil/pixveil/internal/placement"
	"github.com/pixveil/pixveil/internal/tone"
)

// Carrier is one data-carrier candidate, with its tone histogram.
type Carrier struct {
	File     string
	Capacity tone.Capacity
}

// usedImage is per-carrier running accounting during distribution (spec
// UsedImage entity).
type usedImage struct {
	carrier       Carrier
	usedCapacity  int
	chunkCount    int
	usedChannels  *bits.Bitmap
	bands         placement.Bands
	capacityBytes int
}

// capacityBytesFor converts a per-band channel count into a byte capacity at
// the given bits-per-channel, since placement works in channel units but the
// distributor's skip rules are expressed in bytes (spec section 4.6: "Skip
// carriers where used_capacity + chunk_len > capacity").
func capacityBytesFor(bands placement.Bands, bitsPerChannel int) int {
	totalChannels := bands.Low + bands.Mid + bands.High
	return (totalChannels * bitsPerChannel) / 8
}

// Entry mirrors pixveil's DistributionMapEntry.
type Entry struct {
	ChunkID         uint32
	PNGFile         string
	StartChannel    int
	EndChannel      int
	BitsPerChannel  int
	ChannelSequence []bits.Channel
}

// Result is the distributor's output: the placement entries, one per chunk.
// It does not carry the chunk_id -> bytes mapping; the caller builds that
// from the chunks it passed in.
type Result struct {
	Entries []Entry
}

// Distribute assigns chunks (in id order) to carriers, per spec section 4.6.
// carriers must already exclude the distribution-carrier. maxPlacementAttempts
// is forwarded to placement.Place for each chunk (0 falls back to
// placement.DefaultMaxAttempts).
func Distribute(chunks []pixveil.Chunk, carriers []Carrier, bitsPerChannel, maxChunksPerPNG int, weights placement.Weights, maxPlacementAttempts int) (Result, error) {
	if len(carriers) == 0 {
		return Result{}, pixveil.ErrInsufficientCarriers
	}

	images := make([]*usedImage, len(carriers))
	for i, c := range carriers {
		bands := placement.Bands{Low: c.Capacity.Low, Mid: c.Capacity.Mid, High: c.Capacity.High}
		images[i] = &usedImage{
			carrier:       c,
			usedChannels:  bits.NewBitmap(bands.Low + bands.Mid + bands.High),
			bands:         bands,
			capacityBytes: capacityBytesFor(bands, bitsPerChannel),
		}
	}

	// Sort carriers by predominant tone ascending: low before mid before high.
	sort.SliceStable(images, func(i, j int) bool {
		return tonePriority(images[i].carrier.Capacity.Predominant()) <
			tonePriority(images[j].carrier.Capacity.Predominant())
	})

	var entries []Entry
	for _, c := range chunks {
		placed := false
		for _, img := range images {
			if img.chunkCount >= maxChunksPerPNG {
				continue
			}
			if img.usedCapacity+len(c.Data) > img.capacityBytes {
				continue
			}
			pos, err := placement.Place(img.bands, len(c.Data), bitsPerChannel, img.usedChannels, weights, maxPlacementAttempts)
			if err != nil {
				continue
			}
			seq := ChannelSequence(c.ID)
			entries = append(entries, Entry{
				ChunkID:         c.ID,
				PNGFile:         img.carrier.File,
				StartChannel:    pos.Start,
				EndChannel:      pos.End,
				BitsPerChannel:  bitsPerChannel,
				ChannelSequence: seq,
			})
			img.usedCapacity += len(c.Data)
			img.chunkCount++
			placed = true
			break
		}
		if !placed {
			return Result{}, fmt.Errorf("distribute: chunk %d: %w", c.ID, pixveil.ErrCapacityExhausted)
		}
	}

	return Result{Entries: entries}, nil
}

func tonePriority(t pixveil.Tone) int {
	switch t {
	case pixveil.ToneLow:
		return 0
	case pixveil.ToneMid:
		return 1
	default:
		return 2
	}
}

// ChannelSequence computes the deterministic permutation of [R, G, B] for a
// given chunk id: SHA-256("chunk-"+id), first 4 bytes as a big-endian u32
// seed into Mulberry32, driving Fisher-Yates over [R, G, B] (spec section
// 4.6). Only the encoder needs to produce this consistently; the decoder
// reads the stored sequence from the map.
func ChannelSequence(chunkID uint32) []bits.Channel {
	h := sha256.Sum256([]byte(fmt.Sprintf("chunk-%d", chunkID)))
	seed := binary.BigEndian.Uint32(h[:4])

	seq := []bits.Channel{bits.R, bits.G, bits.B}
	rng := newMulberry32(seed)
	for i := len(seq) - 1; i > 0; i-- {
		j := int(rng.next() % uint32(i+1))
		seq[i], seq[j] = seq[j], seq[i]
	}
	return seq
}

// mulberry32 is a small, fast, seeded PRNG, chosen per spec section 9's open
// question ("document the PRNG family... the same choice must be used on the
// encode... side"); this implementation follows the well-known public-domain
// 32-bit constants.
type mulberry32 struct{ state uint32 }

func newMulberry32(seed uint32) *mulberry32 { return &mulberry32{state: seed} }

func (m *mulberry32) next() uint32 {
	m.state += 0x6D2B79F5
	z := m.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	return z ^ (z >> 14)
}
