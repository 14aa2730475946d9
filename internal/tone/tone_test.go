package tone

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pixveil/pixveil"
)

func writeTestPNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestAnalyzeGrayscaleMidTone(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	path := writeTestPNG(t, t.TempDir(), "mid.png", img)

	got, err := Analyze(path)
	require.NoError(t, err)
	require.Equal(t, Capacity{Low: 0, Mid: 64, High: 0}, got)
}

func TestAnalyzeRGBADropsAlphaHighTone(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	path := writeTestPNG(t, t.TempDir(), "high.png", img)

	got, err := Analyze(path)
	require.NoError(t, err)
	require.Equal(t, Capacity{Low: 0, Mid: 0, High: 64}, got)
}

func TestAnalyzeBlackIsLowTone(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{A: 255})
		}
	}
	path := writeTestPNG(t, t.TempDir(), "low.png", img)

	got, err := Analyze(path)
	require.NoError(t, err)
	require.Equal(t, Capacity{Low: 16, Mid: 0, High: 0}, got)
}

func TestCapacityPredominantTieBreaksLow(t *testing.T) {
	require.Equal(t, pixveil.ToneLow, Capacity{Low: 5, Mid: 5, High: 5}.Predominant())
	require.Equal(t, pixveil.ToneMid, Capacity{Low: 1, Mid: 5, High: 5}.Predominant())
	require.Equal(t, pixveil.ToneHigh, Capacity{Low: 1, Mid: 2, High: 9}.Predominant())
}

func TestAnalyzeCachedPopulatesCache(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	path := writeTestPNG(t, t.TempDir(), "cached.png", img)

	cache := &MemoryCache{}
	cap1, err := AnalyzeCached(path, cache)
	require.NoError(t, err)

	key, err := cacheKey(path)
	require.NoError(t, err)
	low, mid, high, ok := cache.Get(key)
	require.True(t, ok)
	require.Equal(t, cap1, Capacity{Low: low, Mid: mid, High: high})
}

func TestWarmPopulatesAllPNGsInDir(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	writeTestPNG(t, dir, "a.png", img)
	writeTestPNG(t, dir, "b.png", img)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("x"), 0o644))

	cache := &MemoryCache{}
	require.NoError(t, Warm(dir, cache))

	for _, name := range []string{"a.png", "b.png"} {
		key, err := cacheKey(filepath.Join(dir, name))
		require.NoError(t, err)
		_, _, _, ok := cache.Get(key)
		require.True(t, ok, name)
	}
}
