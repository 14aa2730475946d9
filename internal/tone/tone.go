// Package tone classifies carrier pixels into low/mid/high luminance bands
// and caches the resulting counts, keyed on (absolute path, file size).
//
// Grounded on zanicar-stegano/png/png.go's image.Decode + per-pixel RGBA()
// loop, generalized from a concealment pass into a read-only classification
// pass.
package tone

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/pixveil/pixveil"
)

// Capacity is the per-band pixel counts of one carrier (spec ImageCapacity).
type Capacity struct {
	Low, Mid, High int
}

// Total returns the total number of classified pixels.
func (c Capacity) Total() int { return c.Low + c.Mid + c.High }

// Predominant returns the band with the largest count, ties broken
// low > mid > high.
func (c Capacity) Predominant() pixveil.Tone {
	switch {
	case c.Low >= c.Mid && c.Low >= c.High:
		return pixveil.ToneLow
	case c.Mid >= c.High:
		return pixveil.ToneMid
	default:
		return pixveil.ToneHigh
	}
}

// Analyze decodes the PNG at path, drops alpha, and classifies every pixel
// into a luminance band using Rec. 709 coefficients:
// Y = 0.2126 R + 0.7152 G + 0.0722 B; Y<85 low, Y<170 mid, else high.
func Analyze(path string) (Capacity, error) {
	f, err := os.Open(path)
	if err != nil {
		return Capacity{}, fmt.Errorf("tone: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Capacity{}, fmt.Errorf("tone: decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	var c Capacity
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA() returns 16-bit premultiplied components; normalize to 8-bit.
			r8 := float64(r >> 8)
			g8 := float64(g >> 8)
			b8 := float64(b >> 8)
			y709 := 0.2126*r8 + 0.7152*g8 + 0.0722*b8
			switch {
			case y709 < 85:
				c.Low++
			case y709 < 170:
				c.Mid++
			default:
				c.High++
			}
		}
	}
	return c, nil
}

// cacheKey builds the (absolute_path, file_size) composite key spec section
// 4.3 requires.
func cacheKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", abs, info.Size()), nil
}

// AnalyzeCached analyzes path, consulting and populating cache first.
func AnalyzeCached(path string, cache pixveil.ToneCache) (Capacity, error) {
	key, err := cacheKey(path)
	if err != nil {
		return Capacity{}, err
	}
	if low, mid, high, ok := cache.Get(key); ok {
		return Capacity{Low: low, Mid: mid, High: high}, nil
	}
	res, err := Analyze(path)
	if err != nil {
		return Capacity{}, err
	}
	cache.Set(key, res.Low, res.Mid, res.High)
	return res, nil
}

// Warm pre-computes and caches the tone of every *.png file directly under
// dir, satisfying spec section 4.3's "must have been pre-warmed for the
// folder" requirement before distribution's synchronous lookups begin.
func Warm(dir string, cache pixveil.ToneCache) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("tone: read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".png" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := AnalyzeCached(path, cache); err != nil {
			return err
		}
	}
	return nil
}
