package chunk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pixveil/pixveil"
)

func TestSplitJoinRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 500) // 8000 bytes
	chunks, err := Split(data, 64, 512)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		require.Equal(t, uint32(i), c.ID)
	}

	joined, err := Join(chunks)
	require.NoError(t, err)
	require.Equal(t, data, joined)
}

func TestSplitRespectsMaxSize(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 10000)
	chunks, err := Split(data, 100, 400)
	require.NoError(t, err)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c.Data), 400)
	}
}

func TestSplitEmptyDataYieldsOneEmptyChunk(t *testing.T) {
	chunks, err := Split(nil, 64, 512)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, uint32(0), chunks[0].ID)
	require.Empty(t, chunks[0].Data)
}

func TestSplitRejectsInvalidBounds(t *testing.T) {
	_, err := Split([]byte("x"), 0, 10)
	require.Error(t, err)

	_, err = Split([]byte("x"), 100, 10)
	require.Error(t, err)
}

func TestJoinDetectsGapInChunkIDs(t *testing.T) {
	chunks := []pixveil.Chunk{
		{ID: 0, Data: []byte("a")},
		{ID: 2, Data: []byte("b")},
	}
	_, err := Join(chunks)
	require.ErrorIs(t, err, pixveil.ErrChunkSequenceBroken)
}

func TestJoinToleratesOutOfOrderInput(t *testing.T) {
	chunks := []pixveil.Chunk{
		{ID: 1, Data: []byte("world")},
		{ID: 0, Data: []byte("hello")},
	}
	joined, err := Join(chunks)
	require.NoError(t, err)
	require.Equal(t, []byte("helloworld"), joined)
}
