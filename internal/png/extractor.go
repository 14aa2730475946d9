package png

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/chunk"
	"github.com/pixveil/pixveil/internal/distribute"
	"github.com/pixveil/pixveil/internal/mapcodec"
)

// decodedCarrier holds one carrier's raw RGB buffer and channel count for
// the lifetime of one extraction.
type decodedCarrier struct {
	buf      []byte
	channels int
}

// Extract reads every entry's chunk bytes from its carrier, decoding each
// distinct carrier file once across a worker pool bounded to
// max(1, cpu_count-1) (spec section 4.8 / 5), reassembles by chunk_id, and
// truncates to encryptedDataLength.
func Extract(ctx context.Context, codec Codec, baseDir string, entries []mapcodec.Entry, encryptedDataLength int) ([]byte, error) {
	byFile := map[string][]mapcodec.Entry{}
	for _, e := range entries {
		byFile[e.PNGFile] = append(byFile[e.PNGFile], e)
	}

	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}

	decoded := make(map[string]*decodedCarrier, len(byFile))
	results := make([]struct {
		file string
		dc   *decodedCarrier
	}, 0, len(byFile))
	for file := range byFile {
		results = append(results, struct {
			file string
			dc   *decodedCarrier
		}{file: file})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range results {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			path := filepath.Join(baseDir, results[i].file)
			buf, _, _, channels, err := codec.Decode(path)
			if err != nil {
				return errors.Wrapf(err, "png: extract: decode %s", path)
			}
			results[i].dc = &decodedCarrier{buf: buf, channels: channels}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, r := range results {
		decoded[r.file] = r.dc
	}

	chunks := make([]pixveil.Chunk, len(entries))
	for i, e := range entries {
		dc := decoded[e.PNGFile]
		de := toDistributeEntry(e)
		chunkBits := (e.EndChannel - e.StartChannel) * int(e.BitsPerChannel)
		data, err := readChunk(dc.buf, dc.channels, de, (chunkBits+7)/8)
		if err != nil {
			return nil, errors.Wrapf(err, "png: extract: chunk %d from %s", e.ChunkID, e.PNGFile)
		}
		chunks[i] = pixveil.Chunk{ID: e.ChunkID, Data: data}
	}

	// chunk.Join enforces spec invariant 1 (ids form {0, 1, ..., N-1} with no
	// gaps) before concatenation, rather than relying on the downstream
	// checksum to catch a substituted chunk id of the same length.
	out, err := chunk.Join(chunks)
	if err != nil {
		return nil, err
	}
	if len(out) > encryptedDataLength {
		out = out[:encryptedDataLength]
	}
	return out, nil
}

func toDistributeEntry(e mapcodec.Entry) distribute.Entry {
	return distribute.Entry{
		ChunkID:         e.ChunkID,
		PNGFile:         e.PNGFile,
		StartChannel:    int(e.StartChannel),
		EndChannel:      int(e.EndChannel),
		BitsPerChannel:  int(e.BitsPerChannel),
		ChannelSequence: e.ChannelSequence,
	}
}
