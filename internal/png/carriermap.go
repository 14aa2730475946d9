package png

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/bits"
	"github.com/pixveil/pixveil/internal/distribute"
)

// mapBitsPerChannel and mapChannelSequence are the fixed parameters the
// carrier-map writer and scanner always use, independent of any chunk's
// deterministic sequence (spec section 4.10).
const mapBitsPerChannel = 2

var mapChannelSequence = []bits.Channel{bits.R, bits.G, bits.B}

func channelsNeeded(byteLen int) int {
	return (byteLen*8 + mapBitsPerChannel - 1) / mapBitsPerChannel
}

func mapEntryAt(start, byteLen int) distribute.Entry {
	return distribute.Entry{
		StartChannel:    start,
		EndChannel:      start + channelsNeeded(byteLen),
		BitsPerChannel:  mapBitsPerChannel,
		ChannelSequence: mapChannelSequence,
	}
}

// WriteMap embeds MAGIC | length(u32) | encryptedMap into the distribution
// carrier at channel 0, using bits_per_channel=2 and sequence [R,G,B], per
// spec section 4.10.
func WriteMap(codec Codec, carrierPath, outputPath string, encryptedMap []byte) error {
	buf, width, height, channels, err := codec.Decode(carrierPath)
	if err != nil {
		return errors.Wrapf(err, "png: write map: decode %s", carrierPath)
	}

	payload := make([]byte, 0, 4+4+len(encryptedMap))
	payload = append(payload, pixveil.Magic[:]...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(encryptedMap)))
	payload = append(payload, lenBuf[:]...)
	payload = append(payload, encryptedMap...)

	entry := mapEntryAt(0, len(payload))
	if err := writeChunk(buf, channels, entry, payload); err != nil {
		return errors.Wrap(err, "png: write map: write")
	}

	return codec.Encode(buf, width, height, outputPath)
}

// ScanForMap enumerates every *.png directly under dir, and for each,
// extracts the framed magic+length+content at bpc=2, seq=[R,G,B], start=0.
// It returns the first encrypted map candidate found, or ErrMagicNotFound if
// none match, per spec section 4.10.
func ScanForMap(codec Codec, dir string) (candidate []byte, carrierPath string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", errors.Wrapf(err, "png: scan map: read dir %s", dir)
	}

	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(strings.ToLower(ent.Name()), ".png") {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		buf, _, _, channels, decodeErr := codec.Decode(path)
		if decodeErr != nil {
			continue
		}

		header := mapEntryAt(0, 8)
		headerBytes, readErr := readChunk(buf, channels, header, 8)
		if readErr != nil || len(headerBytes) < 8 {
			continue
		}
		if string(headerBytes[:4]) != string(pixveil.Magic[:]) {
			continue
		}
		size := binary.BigEndian.Uint32(headerBytes[4:8])

		full := mapEntryAt(0, 8+int(size))
		allBytes, readErr := readChunk(buf, channels, full, 8+int(size))
		if readErr != nil || len(allBytes) < 8+int(size) {
			continue
		}

		return allBytes[8 : 8+int(size)], path, nil
	}

	return nil, "", pixveil.ErrMagicNotFound
}
