package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/config"
	"github.com/pixveil/pixveil/internal/crypto"
	"github.com/pixveil/pixveil/internal/mapcodec"
	pngcodec "github.com/pixveil/pixveil/internal/png"
)

// DecodeOptions configures one decode run.
type DecodeOptions struct {
	InputDir  string
	OutputDir string
	Password  string
	Config    config.Config
	Logger    zerolog.Logger
}

// Decode runs the full INIT -> ... -> COMPLETED decode state machine (spec
// section 4.11).
func Decode(ctx context.Context, opts DecodeOptions) error {
	state := DecodeInit
	log := opts.Logger
	fail := func(s DecodeState, err error) error {
		log.Error().Str("state", s.String()).Err(err).Msg("decode failed")
		return errors.Wrapf(err, "pipeline: state %s", s)
	}
	log.Debug().Str("state", state.String()).Msg("starting decode")

	codec := pngcodec.Codec{Compression: opts.Config.ImageCompression}

	state = DecodeScanMap
	log.Debug().Str("state", state.String()).Msg("")
	candidate, _, err := pngcodec.ScanForMap(codec, opts.InputDir)
	if err != nil {
		return fail(state, err)
	}

	state = DecodeDecryptMap
	log.Debug().Str("state", state.String()).Msg("")
	decrypter := crypto.AESCBCEncrypter{}
	decompressedMapBytes, err := decrypter.Decrypt(candidate, opts.Password)
	if err != nil {
		return fail(state, err)
	}

	state = DecodeDecompressMap
	log.Debug().Str("state", state.String()).Msg("")
	// The map's own compression strategy isn't known until after it is
	// parsed, so the map itself is always compressed with brotli at write
	// time; mirror that choice here. (See EncodeWriteMap.)
	mapCompressor, err := crypto.ForStrategy(pixveil.StrategyBrotli)
	if err != nil {
		return fail(state, err)
	}
	mapBytes, err := mapCompressor.Decompress(decompressedMapBytes)
	if err != nil {
		return fail(state, err)
	}

	state = DecodeParseMap
	log.Debug().Str("state", state.String()).Msg("")
	distMap, err := mapcodec.Deserialize(mapBytes)
	if err != nil {
		return fail(state, err)
	}

	state = DecodeExtractChunks
	log.Debug().Str("state", state.String()).Msg("")
	encryptedPayload, err := pngcodec.Extract(ctx, codec, opts.InputDir, distMap.Entries, int(distMap.EncryptedDataLength))
	if err != nil {
		return fail(state, err)
	}

	state = DecodeAssemble
	log.Debug().Str("state", state.String()).Msg("")
	if len(encryptedPayload) != int(distMap.EncryptedDataLength) {
		return fail(state, errors.Wrapf(pixveil.ErrChunkSequenceBroken,
			"assembled %d bytes, map declares %d", len(encryptedPayload), distMap.EncryptedDataLength))
	}

	state = DecodeVerifyChecksum
	log.Debug().Str("state", state.String()).Msg("")
	actualChecksum := crypto.SHA256Hasher{}.SHA256Sum(encryptedPayload)
	if actualChecksum != distMap.Checksum {
		return fail(state, pixveil.ErrChecksumMismatch)
	}

	state = DecodeDecrypt
	log.Debug().Str("state", state.String()).Msg("")
	compressedPayload, err := decrypter.Decrypt(encryptedPayload, opts.Password)
	if err != nil {
		return fail(state, err)
	}

	state = DecodeDecompress
	log.Debug().Str("state", state.String()).Msg("")
	payloadCompressor, err := crypto.ForStrategy(distMap.CompressionStrategy)
	if err != nil {
		return fail(state, err)
	}
	plaintext, err := payloadCompressor.Decompress(compressedPayload)
	if err != nil {
		return fail(state, err)
	}

	state = DecodeWriteOutput
	log.Debug().Str("state", state.String()).Msg("")
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fail(state, err)
	}
	outPath := filepath.Join(opts.OutputDir, distMap.OriginalFilename)
	if err := os.WriteFile(outPath, plaintext, 0o644); err != nil {
		return fail(state, err)
	}

	state = DecodeCompleted
	log.Info().Str("state", state.String()).Str("output", outPath).Msg("decode complete")
	return nil
}
