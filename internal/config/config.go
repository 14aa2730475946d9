// Package config loads Pix-Veil's tunable constants from an optional TOML
// file, falling back to compiled-in defaults that match the spec's documented
// values.
package config

import (
	"github.com/BurntSushi/toml"
)

// ImageCompression controls how carrier PNGs are re-encoded after injection.
type ImageCompression struct {
	CompressionLevel  int  `toml:"compression_level"`
	AdaptiveFiltering bool `toml:"adaptive_filtering"`
}

// ChunksDefinition bounds the chunker and the per-carrier chunk count.
// MaxChunksPerPNG is enforced by the distributor; MinChunksPerPNG is
// advisory and not read by it.
type ChunksDefinition struct {
	MinChunksPerPNG int `toml:"min_chunks_per_png"`
	MaxChunksPerPNG int `toml:"max_chunks_per_png"`
	MinChunkSize    int `toml:"min_chunk_size"`
	MaxChunkSize    int `toml:"max_chunk_size"`
}

// ToneWeighting carries both the capacity-scoring weights and the
// placement-draw weights for the three luminance bands.
type ToneWeighting struct {
	Low  float64 `toml:"low"`
	Mid  float64 `toml:"mid"`
	High float64 `toml:"high"`
}

// Config is the full tunable surface named in spec section 6.
type Config struct {
	ImageCompression                 ImageCompression `toml:"image_compression"`
	ChunksDefinition                 ChunksDefinition `toml:"chunks_definition"`
	BitsPerChannelForDistributionMap int              `toml:"bits_per_channel_for_distribution_map"`
	ToneWeighting                    ToneWeighting    `toml:"tone_weighting"`
	PlacementDrawWeighting           ToneWeighting    `toml:"placement_draw_weighting"`
	ToneCachePath                    string           `toml:"tone_cache_path"`
	PlacementMaxAttempts             int              `toml:"placement_max_attempts"`
}

// Default returns the compiled-in configuration described in spec sections 4
// and 6: capacity-scoring weights 1.5/1.0/0.5, placement-draw weights 4/2/1,
// fixed map bpc of 2, and 100 placement attempts per chunk.
func Default() Config {
	return Config{
		ImageCompression: ImageCompression{
			CompressionLevel:  6,
			AdaptiveFiltering: true,
		},
		ChunksDefinition: ChunksDefinition{
			MinChunksPerPNG: 1,
			MaxChunksPerPNG: 64,
			MinChunkSize:    1024,
			MaxChunkSize:    8192,
		},
		BitsPerChannelForDistributionMap: 2,
		ToneWeighting: ToneWeighting{
			Low:  1.5,
			Mid:  1.0,
			High: 0.5,
		},
		PlacementDrawWeighting: ToneWeighting{
			Low:  4,
			Mid:  2,
			High: 1,
		},
		ToneCachePath:        "",
		PlacementMaxAttempts: 100,
	}
}

// Load reads a TOML file at path and merges it over Default(), returning the
// merged configuration. An empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
