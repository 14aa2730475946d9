package png

import (
	"context"
	"image"
	"image/color"
	stdpng "image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/bits"
	"github.com/pixveil/pixveil/internal/config"
	"github.com/pixveil/pixveil/internal/distribute"
	"github.com/pixveil/pixveil/internal/mapcodec"
)

func writeWhitePNG(t *testing.T, dir, name string, size int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, stdpng.Encode(f, img))
	return path
}

func TestCodecDecodeEncodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeWhitePNG(t, dir, "src.png", 4)

	codec := Codec{Compression: config.Default().ImageCompression}
	buf, w, h, channels, err := codec.Decode(srcPath)
	require.NoError(t, err)
	require.Equal(t, 4, w)
	require.Equal(t, 4, h)
	require.Equal(t, 3, channels)
	require.Len(t, buf, 4*4*3)
	for _, b := range buf {
		require.Equal(t, byte(255), b)
	}

	outPath := filepath.Join(dir, "out.png")
	require.NoError(t, codec.Encode(buf, w, h, outPath))

	buf2, w2, h2, _, err := codec.Decode(outPath)
	require.NoError(t, err)
	require.Equal(t, w, w2)
	require.Equal(t, h, h2)
	require.Equal(t, buf, buf2)
}

func TestInjectAndExtractRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeWhitePNG(t, dir, "carrier.png", 16)
	outPath := filepath.Join(dir, "carrier.out.png")

	codec := Codec{Compression: config.Default().ImageCompression}
	data := []byte("Hello, World!")

	entry := distribute.Entry{
		ChunkID:         0,
		PNGFile:         "carrier.out.png",
		StartChannel:    0,
		EndChannel:      (len(data)*8 + 1) / 2,
		BitsPerChannel:  2,
		ChannelSequence: []bits.Channel{bits.R, bits.G, bits.B},
	}

	plan := InjectPlan{
		SourcePath: srcPath,
		OutputPath: outPath,
		Entries:    []distribute.Entry{entry},
		ChunkData:  map[uint32][]byte{0: data},
	}

	err := Inject(context.Background(), codec, []InjectPlan{plan}, zerolog.Nop())
	require.NoError(t, err)

	mapEntries := []mapcodec.Entry{
		{
			ChunkID:         0,
			PNGFile:         "carrier.out.png",
			StartChannel:    uint32(entry.StartChannel),
			EndChannel:      uint32(entry.EndChannel),
			BitsPerChannel:  2,
			ChannelSequence: entry.ChannelSequence,
		},
	}
	extracted, err := Extract(context.Background(), codec, dir, mapEntries, len(data))
	require.NoError(t, err)
	require.Equal(t, data, extracted)
}

func TestExtractDetectsGapInChunkIDs(t *testing.T) {
	dir := t.TempDir()
	srcPath := writeWhitePNG(t, dir, "carrier.png", 16)
	outPath := filepath.Join(dir, "carrier.out.png")

	codec := Codec{Compression: config.Default().ImageCompression}
	seq := []bits.Channel{bits.R, bits.G, bits.B}

	entry0 := distribute.Entry{ChunkID: 0, PNGFile: "carrier.out.png", StartChannel: 0, EndChannel: 16, BitsPerChannel: 2, ChannelSequence: seq}
	// ChunkID 2 instead of 1: the map has no chunk 1, so the id sequence is
	// not a contiguous 0..N-1 run even though both chunks decode cleanly.
	entry2 := distribute.Entry{ChunkID: 2, PNGFile: "carrier.out.png", StartChannel: 16, EndChannel: 32, BitsPerChannel: 2, ChannelSequence: seq}

	plan := InjectPlan{
		SourcePath: srcPath,
		OutputPath: outPath,
		Entries:    []distribute.Entry{entry0, entry2},
		ChunkData:  map[uint32][]byte{0: []byte("AAAA"), 2: []byte("BBBB")},
	}
	require.NoError(t, Inject(context.Background(), codec, []InjectPlan{plan}, zerolog.Nop()))

	mapEntries := []mapcodec.Entry{
		{ChunkID: 0, PNGFile: "carrier.out.png", StartChannel: 0, EndChannel: 16, BitsPerChannel: 2, ChannelSequence: seq},
		{ChunkID: 2, PNGFile: "carrier.out.png", StartChannel: 16, EndChannel: 32, BitsPerChannel: 2, ChannelSequence: seq},
	}
	_, err := Extract(context.Background(), codec, dir, mapEntries, 8)
	require.ErrorIs(t, err, pixveil.ErrChunkSequenceBroken)
}

func TestWriteAndScanForMapRoundTrip(t *testing.T) {
	dir := t.TempDir()
	carrierPath := writeWhitePNG(t, dir, "distribution.png", 32)
	outPath := filepath.Join(dir, "distribution.png")

	codec := Codec{Compression: config.Default().ImageCompression}
	encryptedMap := []byte("fake-encrypted-distribution-map-bytes")

	require.NoError(t, WriteMap(codec, carrierPath, outPath, encryptedMap))

	// Add a decoy carrier with no embedded map, to make sure the scanner
	// skips it and finds the real one.
	writeWhitePNG(t, dir, "decoy.png", 8)

	candidate, foundPath, err := ScanForMap(codec, dir)
	require.NoError(t, err)
	require.Equal(t, outPath, foundPath)
	require.Equal(t, encryptedMap, candidate)
}

func TestScanForMapReturnsMagicNotFoundWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	writeWhitePNG(t, dir, "plain.png", 8)

	codec := Codec{Compression: config.Default().ImageCompression}
	_, _, err := ScanForMap(codec, dir)
	require.ErrorIs(t, err, pixveil.ErrMagicNotFound)
}
