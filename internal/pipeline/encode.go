package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/chunk"
	"github.com/pixveil/pixveil/internal/config"
	"github.com/pixveil/pixveil/internal/crypto"
	"github.com/pixveil/pixveil/internal/distribute"
	"github.com/pixveil/pixveil/internal/mapcodec"
	"github.com/pixveil/pixveil/internal/placement"
	pngcodec "github.com/pixveil/pixveil/internal/png"
	"github.com/pixveil/pixveil/internal/tone"
)

// EncodeOptions configures one encode run.
type EncodeOptions struct {
	InputPath           string
	PNGFolder           string
	OutputDir           string
	Password            string
	CompressionStrategy pixveil.CompressionStrategy
	Config              config.Config
	Logger              zerolog.Logger
	ToneCache           pixveil.ToneCache
	DebugVisualMarkers  bool
}

// Encode runs the full INIT -> ... -> COMPLETED state machine (spec section
// 4.11), producing one modified PNG per input carrier in OutputDir.
func Encode(ctx context.Context, opts EncodeOptions) error {
	state := EncodeInit
	log := opts.Logger
	fail := func(s EncodeState, err error) error {
		log.Error().Str("state", s.String()).Err(err).Msg("encode failed")
		return errors.Wrapf(err, "pipeline: state %s", s)
	}
	log.Debug().Str("state", state.String()).Msg("starting encode")

	state = EncodeReadInput
	log.Debug().Str("state", state.String()).Msg("")
	plaintext, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return fail(state, err)
	}

	state = EncodeCompress
	log.Debug().Str("state", state.String()).Msg("")
	compressor, err := crypto.ForStrategy(opts.CompressionStrategy)
	if err != nil {
		return fail(state, err)
	}
	compressed, err := compressor.Compress(plaintext)
	if err != nil {
		return fail(state, err)
	}

	state = EncodeEncryptChecksum
	log.Debug().Str("state", state.String()).Msg("")
	encrypter := crypto.AESCBCEncrypter{}
	encrypted, err := encrypter.Encrypt(compressed, opts.Password)
	if err != nil {
		return fail(state, err)
	}
	checksum := crypto.SHA256Hasher{}.SHA256Sum(encrypted)

	state = EncodeChunk
	log.Debug().Str("state", state.String()).Msg("")
	chunks, err := chunk.Split(encrypted, opts.Config.ChunksDefinition.MinChunkSize, opts.Config.ChunksDefinition.MaxChunkSize)
	if err != nil {
		return fail(state, err)
	}

	state = EncodeAnalyzeCarriers
	log.Debug().Str("state", state.String()).Msg("")
	pngFiles, err := listPNGs(opts.PNGFolder)
	if err != nil {
		return fail(state, err)
	}
	if len(pngFiles) < 2 {
		return fail(state, pixveil.ErrInsufficientCarriers)
	}
	// Warm pre-populates the cache for every PNG in the folder in one pass;
	// the AnalyzeCached calls below then become cache hits.
	if err := tone.Warm(opts.PNGFolder, opts.ToneCache); err != nil {
		return fail(state, err)
	}
	capacities := make(map[string]tone.Capacity, len(pngFiles))
	for _, f := range pngFiles {
		c, err := tone.AnalyzeCached(f, opts.ToneCache)
		if err != nil {
			return fail(state, err)
		}
		capacities[f] = c
	}

	state = EncodePickDistributionCarrier
	log.Debug().Str("state", state.String()).Msg("")
	distCarrier, dataCarriers := pickDistributionCarrier(pngFiles, capacities, opts.Config.BitsPerChannelForDistributionMap)
	if distCarrier == "" {
		return fail(state, pixveil.ErrInsufficientCarriers)
	}

	state = EncodeDistribute
	log.Debug().Str("state", state.String()).Msg("")
	var distCarriers []distribute.Carrier
	for _, f := range dataCarriers {
		distCarriers = append(distCarriers, distribute.Carrier{File: f, Capacity: capacities[f]})
	}
	weights := placement.Weights(opts.Config.PlacementDrawWeighting)
	result, err := distribute.Distribute(chunks, distCarriers, opts.Config.BitsPerChannelForDistributionMap, opts.Config.ChunksDefinition.MaxChunksPerPNG, weights, opts.Config.PlacementMaxAttempts)
	if err != nil {
		return fail(state, err)
	}

	state = EncodeInject
	log.Debug().Str("state", state.String()).Msg("")
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fail(state, err)
	}
	codec := pngcodec.Codec{Compression: opts.Config.ImageCompression}
	plans := buildInjectPlans(result.Entries, chunks, opts.OutputDir)
	if err := pngcodec.Inject(ctx, codec, plans, log); err != nil {
		return fail(state, err)
	}
	// Carriers that received no chunks still need to be copied through so
	// the decoder's scanner sees the full carrier set in OutputDir.
	if err := copyUnusedCarriers(dataCarriers, plans, opts.OutputDir); err != nil {
		return fail(state, err)
	}

	if opts.DebugVisualMarkers {
		if err := writeDebugMarkers(codec, plans, opts.OutputDir); err != nil {
			return fail(state, err)
		}
	}

	state = EncodeWriteMap
	log.Debug().Str("state", state.String()).Msg("")
	mapBytes := mapcodec.Serialize(mapcodec.Map{
		Entries:             toMapEntries(result.Entries),
		OriginalFilename:    filepath.Base(opts.InputPath),
		Checksum:            checksum,
		EncryptedDataLength: uint32(len(encrypted)),
		CompressionStrategy: opts.CompressionStrategy,
	})
	// The map wrapper is always brotli-compressed regardless of the payload's
	// chosen strategy: the decoder must be able to decompress the map before
	// it has parsed the map's own compression_strategy field.
	mapCompressor, err := crypto.ForStrategy(pixveil.StrategyBrotli)
	if err != nil {
		return fail(state, err)
	}
	compressedMap, err := mapCompressor.Compress(mapBytes)
	if err != nil {
		return fail(state, err)
	}
	encryptedMap, err := encrypter.Encrypt(compressedMap, opts.Password)
	if err != nil {
		return fail(state, err)
	}

	distCap := capacities[distCarrier]
	distCapacityBytes := (distCap.Total() * opts.Config.BitsPerChannelForDistributionMap) / 8
	if len(encryptedMap)+8 > distCapacityBytes {
		return fail(state, errors.Wrapf(pixveil.ErrMapCapacityExceeded,
			"need %d bytes, distribution carrier has %d", len(encryptedMap)+8, distCapacityBytes))
	}

	distOutPath := filepath.Join(opts.OutputDir, filepath.Base(distCarrier))
	if err := pngcodec.WriteMap(codec, distCarrier, distOutPath, encryptedMap); err != nil {
		return fail(state, err)
	}

	state = EncodeCompleted
	log.Info().Str("state", state.String()).Int("carriers", len(pngFiles)).Int("chunks", len(chunks)).Msg("encode complete")
	return nil
}

func listPNGs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

// pickDistributionCarrier selects the PNG with the smallest embeddable
// capacity as the distribution carrier (spec section 4.11), returning it
// plus the remaining carriers as data carriers.
func pickDistributionCarrier(files []string, capacities map[string]tone.Capacity, bpc int) (string, []string) {
	if len(files) == 0 {
		return "", nil
	}
	best := files[0]
	bestBytes := capacityBytes(capacities[best], bpc)
	for _, f := range files[1:] {
		b := capacityBytes(capacities[f], bpc)
		if b < bestBytes {
			best = f
			bestBytes = b
		}
	}
	var rest []string
	for _, f := range files {
		if f != best {
			rest = append(rest, f)
		}
	}
	return best, rest
}

func capacityBytes(c tone.Capacity, bpc int) int {
	return (c.Total() * bpc) / 8
}

func buildInjectPlans(entries []distribute.Entry, chunks []pixveil.Chunk, outputDir string) []pngcodec.InjectPlan {
	chunkData := make(map[uint32][]byte, len(chunks))
	for _, c := range chunks {
		chunkData[c.ID] = c.Data
	}

	byFile := map[string][]distribute.Entry{}
	for _, e := range entries {
		byFile[e.PNGFile] = append(byFile[e.PNGFile], e)
	}

	plans := make([]pngcodec.InjectPlan, 0, len(byFile))
	for file, fileEntries := range byFile {
		data := make(map[uint32][]byte, len(fileEntries))
		for _, e := range fileEntries {
			data[e.ChunkID] = chunkData[e.ChunkID]
		}
		plans = append(plans, pngcodec.InjectPlan{
			SourcePath: file,
			OutputPath: filepath.Join(outputDir, filepath.Base(file)),
			Entries:    fileEntries,
			ChunkData:  data,
		})
	}
	return plans
}

func copyUnusedCarriers(dataCarriers []string, plans []pngcodec.InjectPlan, outputDir string) error {
	injected := map[string]bool{}
	for _, p := range plans {
		injected[p.SourcePath] = true
	}
	for _, f := range dataCarriers {
		if injected[f] {
			continue
		}
		if err := copyFile(f, filepath.Join(outputDir, filepath.Base(f))); err != nil {
			return err
		}
	}
	return nil
}

// writeDebugMarkers paints each carrier's planned channel ranges onto a
// disposable copy under OutputDir/debug, for the CLI's -dv flag. It never
// touches the actual output carriers the decoder will scan.
func writeDebugMarkers(codec pngcodec.Codec, plans []pngcodec.InjectPlan, outputDir string) error {
	debugDir := filepath.Join(outputDir, "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		return err
	}
	for _, p := range plans {
		out := filepath.Join(debugDir, filepath.Base(p.SourcePath))
		if err := pngcodec.PaintDebugMarkers(codec, p.SourcePath, out, p.Entries); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func toMapEntries(entries []distribute.Entry) []mapcodec.Entry {
	out := make([]mapcodec.Entry, len(entries))
	for i, e := range entries {
		out[i] = mapcodec.Entry{
			ChunkID:         e.ChunkID,
			PNGFile:         filepath.Base(e.PNGFile),
			StartChannel:    uint32(e.StartChannel),
			EndChannel:      uint32(e.EndChannel),
			BitsPerChannel:  uint8(e.BitsPerChannel),
			ChannelSequence: e.ChannelSequence,
		}
	}
	return out
}
