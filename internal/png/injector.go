package png

import (
	"bytes"
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/bits"
	"github.com/pixveil/pixveil/internal/distribute"
)

// InjectPlan groups a carrier's owned entries together with the chunk bytes
// to inject, since the injector works one carrier file at a time.
type InjectPlan struct {
	SourcePath string
	OutputPath string
	Entries    []distribute.Entry
	ChunkData  map[uint32][]byte
}

// Inject writes chunk_data bits into each plan's carrier at its planned
// channels, verifies by re-extraction, and re-encodes to OutputPath, per
// spec section 4.7. Plans run across a worker pool bounded to
// max(1, cpu_count-1).
func Inject(ctx context.Context, codec Codec, plans []InjectPlan, log zerolog.Logger) error {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, plan := range plans {
		plan := plan
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return injectOne(codec, plan, log)
		})
	}
	return g.Wait()
}

func injectOne(codec Codec, plan InjectPlan, log zerolog.Logger) error {
	buf, width, height, channels, err := codec.Decode(plan.SourcePath)
	if err != nil {
		return errors.Wrapf(err, "png: inject: decode %s", plan.SourcePath)
	}

	for _, e := range plan.Entries {
		data, ok := plan.ChunkData[e.ChunkID]
		if !ok {
			return errors.Errorf("png: inject: no data for chunk %d", e.ChunkID)
		}
		if err := writeChunk(buf, channels, e, data); err != nil {
			return errors.Wrapf(err, "png: inject: write chunk %d into %s", e.ChunkID, plan.SourcePath)
		}

		readBack, err := readChunk(buf, channels, e, len(data))
		if err != nil {
			return errors.Wrapf(err, "png: inject: verify chunk %d", e.ChunkID)
		}
		if !bytes.Equal(readBack, data) {
			return errors.Wrapf(pixveil.ErrVerificationFailed, "chunk %d in %s", e.ChunkID, plan.SourcePath)
		}
	}

	log.Debug().Str("carrier", plan.SourcePath).Int("entries", len(plan.Entries)).Msg("injected carrier")

	return codec.Encode(buf, width, height, plan.OutputPath)
}

// writeChunk packs data MSB-first, bpc bits at a time, into the buffer at
// channels [start, start+neededChannels), per spec section 4.7.
func writeChunk(buf []byte, imageChannels int, e distribute.Entry, data []byte) error {
	bpc := e.BitsPerChannel
	totalBitsNeeded := (e.EndChannel - e.StartChannel) * bpc

	for i := 0; i < totalBitsNeeded; i += bpc {
		value := extractMSBBits(data, i, bpc)
		channelIndex := e.StartChannel + i/bpc
		byteIndex, err := bits.Address(channelIndex, e.ChannelSequence, imageChannels, len(buf))
		if err != nil {
			return err
		}
		buf[byteIndex] = bits.InsertBits(buf[byteIndex], value, 0, bpc)
	}
	return nil
}

func readChunk(buf []byte, imageChannels int, e distribute.Entry, dataLen int) ([]byte, error) {
	bpc := e.BitsPerChannel
	totalBits := (e.EndChannel - e.StartChannel) * bpc
	out := make([]byte, (totalBits+7)/8)

	for i := 0; i < totalBits; i += bpc {
		channelIndex := e.StartChannel + i/bpc
		byteIndex, err := bits.Address(channelIndex, e.ChannelSequence, imageChannels, len(buf))
		if err != nil {
			return nil, err
		}
		value := bits.ExtractBits(buf[byteIndex], 0, bpc)
		insertMSBBits(out, i, bpc, value)
	}
	if len(out) > dataLen {
		out = out[:dataLen]
	}
	return out, nil
}

// extractMSBBits reads count bits (count <= 8) starting at bit offset
// bitOffset (MSB-first across the whole buffer) from data, returning them
// right-aligned in the low bits of the result.
func extractMSBBits(data []byte, bitOffset, count int) byte {
	var value byte
	for i := 0; i < count; i++ {
		bit := bitOffset + i
		byteIdx := bit / 8
		bitInByte := 7 - bit%8
		var b byte
		if byteIdx < len(data) {
			b = (data[byteIdx] >> bitInByte) & 1
		}
		value = (value << 1) | b
	}
	return value
}

// insertMSBBits writes the low count bits of value into out at bit offset
// bitOffset, MSB-first, mirroring extractMSBBits.
func insertMSBBits(out []byte, bitOffset, count int, value byte) {
	for i := 0; i < count; i++ {
		bit := bitOffset + i
		byteIdx := bit / 8
		bitInByte := 7 - bit%8
		shift := count - 1 - i
		b := (value >> shift) & 1
		if b == 1 {
			out[byteIdx] |= 1 << bitInByte
		}
	}
}
