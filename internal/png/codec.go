// Package png provides the carrier image codec, injector, extractor, and
// carrier-map writer/scanner that read and write steganographic PNGs.
//
// Grounded on zanicar-stegano/png/png.go's image.Decode/image.NewNRGBA/
// image/png.Encode usage, generalized from a single whole-payload conceal
// pass into chunk-level, plan-driven reads and writes.
package png

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/pkg/errors"

	"github.com/pixveil/pixveil/internal/config"
)

// Codec implements pixveil.ImageCodec using the standard library's PNG
// encoder/decoder.
type Codec struct {
	Compression config.ImageCompression
}

// Decode reads the PNG (or JPEG, for input flexibility) at path, drops
// alpha, and returns raw interleaved RGB bytes plus dimensions and channel
// count (always 3), per spec section 6's provider contract.
func (Codec) Decode(path string) ([]byte, int, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, errors.Wrapf(err, "png: open %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, 0, errors.Wrapf(err, "png: decode %s", path)
	}

	bounds := img.Bounds()
	width := bounds.Max.X - bounds.Min.X
	height := bounds.Max.Y - bounds.Min.Y

	buf := make([]byte, width*height*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			buf[i] = byte(r >> 8)
			buf[i+1] = byte(g >> 8)
			buf[i+2] = byte(b >> 8)
			i += 3
		}
	}
	return buf, width, height, 3, nil
}

// Encode writes raw interleaved RGB bytes as a PNG at path, at the
// configured compression level. The AdaptiveFiltering setting is not
// applied: the standard encoder offers no filter choice, so its own filter
// selection is used whatever the setting says.
func (c Codec) Encode(buf []byte, width, height int, path string) error {
	if len(buf) != width*height*3 {
		return fmt.Errorf("png: buffer length %d does not match %dx%dx3", len(buf), width, height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := img.PixOffset(x, y)
			img.Pix[offset] = buf[i]
			img.Pix[offset+1] = buf[i+1]
			img.Pix[offset+2] = buf[i+2]
			img.Pix[offset+3] = 0xFF
			i += 3
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "png: create %s", path)
	}
	defer f.Close()

	encoder := png.Encoder{
		CompressionLevel: compressionLevel(c.Compression.CompressionLevel),
	}
	if err := encoder.Encode(f, img); err != nil {
		return errors.Wrapf(err, "png: encode %s", path)
	}
	return nil
}

// compressionLevel maps the 0-9 configured integer onto the nearest stdlib
// image/png.CompressionLevel constant, since the standard encoder does not
// expose a continuous 0-9 scale.
func compressionLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}
