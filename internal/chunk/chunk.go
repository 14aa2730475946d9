// Package chunk splits an encrypted payload into variable-size chunks with
// monotonically increasing ids, per spec section 4.5.
//
// Grounded on zanicar-stegano's fixed-stride byte walk in png/png.go,
// generalized from a constant stride to a randomized size drawn between
// configured bounds.
package chunk

import (
	"crypto/rand"
	"encoding/binary"
	"sort"

	"github.com/pixveil/pixveil"
)

// Split divides data into chunks of randomized size in [minSize, maxSize],
// with ids 0..N-1. The final chunk may be shorter than minSize (the
// remainder). If data is empty, Split returns a single empty chunk with id 0
// so the pipeline always has at least one chunk to place.
func Split(data []byte, minSize, maxSize int) ([]pixveil.Chunk, error) {
	if minSize <= 0 || maxSize < minSize {
		return nil, &InvalidBoundsError{MinSize: minSize, MaxSize: maxSize}
	}

	if len(data) == 0 {
		return []pixveil.Chunk{{ID: 0, Data: []byte{}}}, nil
	}

	var chunks []pixveil.Chunk
	offset := 0
	var id uint32
	for offset < len(data) {
		remaining := len(data) - offset
		size := drawSize(minSize, maxSize)
		if size > remaining {
			size = remaining
		}
		chunks = append(chunks, pixveil.Chunk{
			ID:   id,
			Data: append([]byte(nil), data[offset:offset+size]...),
		})
		offset += size
		id++
	}
	return chunks, nil
}

// drawSize picks a multiple of minSize up to maxSize/minSize, per spec
// section 4.5 ("draw a multiple of min_chunk_size up to
// max_chunk_size/min_chunk_size").
func drawSize(minSize, maxSize int) int {
	maxMultiple := maxSize / minSize
	if maxMultiple <= 1 {
		return minSize
	}
	multiple := 1 + int(randUint32()%uint32(maxMultiple))
	size := multiple * minSize
	if size > maxSize {
		size = maxSize
	}
	return size
}

func randUint32() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return binary.BigEndian.Uint32(buf[:])
}

// InvalidBoundsError reports a nonsensical (minSize, maxSize) configuration.
type InvalidBoundsError struct {
	MinSize, MaxSize int
}

func (e *InvalidBoundsError) Error() string {
	return "chunk: invalid bounds"
}

// Join reassembles chunks sorted by id into a single byte slice, verifying
// the id sequence is {0, 1, ..., N-1} with no gaps (spec invariant 1).
func Join(chunks []pixveil.Chunk) ([]byte, error) {
	sorted := append([]pixveil.Chunk(nil), chunks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i, c := range sorted {
		if c.ID != uint32(i) {
			return nil, pixveil.ErrChunkSequenceBroken
		}
	}

	var out []byte
	for _, c := range sorted {
		out = append(out, c.Data...)
	}
	return out, nil
}
