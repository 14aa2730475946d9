// Package pixveil hides an arbitrary input file inside a set of PNG carrier
// images by encoding its bits into the low bits of color channels, and
// recovers it bit-exactly on the opposite side.
//
// The package defines the provider interfaces the encode/decode pipeline
// depends on (image codec, compressor, encrypter, hasher, tone cache) and the
// sentinel errors every pipeline stage can surface. Concrete providers live in
// internal/png and internal/crypto; the pipeline itself lives in
// internal/pipeline.
package pixveil

import (
	"errors"
)

// Sentinel errors, one per spec error kind. Callers test with errors.Is;
// pipeline code wraps these with github.com/pkg/errors for stack context.
var (
	ErrInsufficientCarriers = errors.New("pixveil: fewer than two usable PNG carriers")
	ErrCapacityExhausted    = errors.New("pixveil: no carrier had room for a chunk")
	ErrNoPosition           = errors.New("pixveil: placement engine exhausted its attempt budget")
	ErrVerificationFailed   = errors.New("pixveil: post-injection re-extraction mismatch")
	ErrMagicNotFound        = errors.New("pixveil: no carrier contains the distribution map magic")
	ErrMapTruncated         = errors.New("pixveil: distribution map size field exceeds buffer")
	ErrMapMalformed         = errors.New("pixveil: distribution map failed structural validation")
	ErrChecksumMismatch     = errors.New("pixveil: reassembled payload checksum does not match the map")
	ErrChunkSequenceBroken  = errors.New("pixveil: chunk ids are not a contiguous 0..N-1 run")
	ErrDecryptionFailed     = errors.New("pixveil: decryption failed")
	ErrDecompressionFailed  = errors.New("pixveil: decompression failed")
	ErrMapCapacityExceeded  = errors.New("pixveil: distribution carrier too small for the encrypted map")
)

// ImageCodec decodes a PNG carrier to raw interleaved RGB bytes and encodes
// raw RGB bytes back to a PNG file, per spec section 6's image provider.
type ImageCodec interface {
	Decode(path string) (pix []byte, width, height, channels int, err error)
	Encode(pix []byte, width, height int, path string) error
}

// Compressor implements one of the {brotli, gzip, none} strategies.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Strategy() CompressionStrategy
}

// Encrypter implements a symmetric, password-gated cipher.
type Encrypter interface {
	Encrypt(data []byte, password string) ([]byte, error)
	Decrypt(data []byte, password string) ([]byte, error)
}

// Hasher computes a cryptographic digest over a byte slice.
type Hasher interface {
	SHA256Hex(data []byte) string
}

// ToneCache is the durable+in-memory capacity cache consumed by the tone
// analyzer (spec section 4.3).
type ToneCache interface {
	Get(key string) (low, mid, high int, ok bool)
	Set(key string, low, mid, high int)
}

// CompressionStrategy tags which compression algorithm produced a payload;
// stored verbatim in the distribution map so the decoder can reverse it.
type CompressionStrategy uint8

const (
	StrategyNone CompressionStrategy = iota
	StrategyGzip
	StrategyBrotli
)

func (s CompressionStrategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyGzip:
		return "gzip"
	case StrategyBrotli:
		return "brotli"
	default:
		return "unknown"
	}
}

// EncryptionStrategy tags which symmetric cipher was used. The design carries
// a single member today (AES-256-CBC) but is kept as an enum, per the
// "replace dynamically-dispatched strategy classes with a tagged enum" design
// note, so a second cipher can be added without touching call sites.
type EncryptionStrategy uint8

const (
	StrategyAES256CBC EncryptionStrategy = iota
)

// Tone is the luminance band a pixel falls into.
type Tone uint8

const (
	ToneLow Tone = iota
	ToneMid
	ToneHigh
)

func (t Tone) String() string {
	switch t {
	case ToneLow:
		return "low"
	case ToneMid:
		return "mid"
	case ToneHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Magic is the 4-byte sentinel that frames the serialized distribution map
// and marks its location inside a carrier's pixel data.
var Magic = [4]byte{0xDE, 0xAD, 0xFA, 0xCE}

// BitsPerChannelForDistributionMap is the fixed bpc used for the in-image map
// framing, independent of the per-chunk bpc used for data (both are 2 today,
// but the map's value is never configurable, per spec invariant 6).
const BitsPerChannelForDistributionMap = 2

// Chunk is a contiguous slice of the encrypted payload, identified by a
// monotonically increasing id.
type Chunk struct {
	ID   uint32
	Data []byte
}
