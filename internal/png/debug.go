package png

import (
	"github.com/pkg/errors"

	"github.com/pixveil/pixveil/internal/bits"
	"github.com/pixveil/pixveil/internal/distribute"
)

// PaintDebugMarkers sets the high bit of every channel covered by an entry,
// for the CLI's --dv flag. The encode pipeline calls it only when
// EncodeOptions.DebugVisualMarkers is set, writing to a disposable copy under
// OutputDir/debug; it must only run against such a copy of a carrier, never
// against an output carrier the decoder will scan.
func PaintDebugMarkers(codec Codec, carrierPath, outputPath string, entries []distribute.Entry) error {
	buf, width, height, channels, err := codec.Decode(carrierPath)
	if err != nil {
		return errors.Wrapf(err, "png: debug markers: decode %s", carrierPath)
	}

	for _, e := range entries {
		for ch := e.StartChannel; ch < e.EndChannel; ch++ {
			byteIndex, addrErr := bits.Address(ch, e.ChannelSequence, channels, len(buf))
			if addrErr != nil {
				continue
			}
			buf[byteIndex] |= 0x80
		}
	}

	return codec.Encode(buf, width, height, outputPath)
}
