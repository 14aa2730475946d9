// Package crypto implements the compress/encrypt/hash providers consumed by
// the pipeline: compression (brotli, gzip, or none), AES-256-CBC encryption
// keyed from a passphrase via Argon2id, and SHA-256 hashing.
//
// Grounded on zanicar-stegano/cmd/stegano/stegano.go's compress/decompress/
// encrypt/decrypt free functions, generalized from a single fixed algorithm
// per concern to the spec's selectable-strategy model.
package crypto

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"

	"github.com/pixveil/pixveil"
)

const (
	saltSize = 16
	keySize  = 32 // AES-256
)

// SHA256Hasher implements pixveil.Hasher.
type SHA256Hasher struct{}

func (SHA256Hasher) SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256Sum returns the raw 32-byte digest, for callers (like the map codec)
// that need the binary form rather than the pixveil.Hasher interface's hex
// string.
func (SHA256Hasher) SHA256Sum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// deriveKey stretches a passphrase into a 32-byte AES key using Argon2id,
// salted per-payload so the same passphrase never produces the same key
// twice.
func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, keySize)
}

// AESCBCEncrypter implements pixveil.Encrypter using AES-256 in CBC mode.
// Wire format: salt(16) || iv(16) || PKCS7-padded ciphertext. CBC is not
// authenticated on its own; the pipeline's external SHA-256 checksum over the
// full encrypted payload (spec invariant 7) is what detects tampering, per
// spec section 6: "the scheme must be authenticated or accompanied by an
// external checksum".
type AESCBCEncrypter struct{}

func (AESCBCEncrypter) Encrypt(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "crypto: generate salt")
	}
	key := deriveKey(password, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: new AES cipher")
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.Wrap(err, "crypto: generate iv")
	}

	padded := pkcs7Pad(data, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	out := make([]byte, 0, saltSize+aes.BlockSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	return out, nil
}

func (AESCBCEncrypter) Decrypt(data []byte, password string) ([]byte, error) {
	if len(data) < saltSize+aes.BlockSize {
		return nil, errors.Wrap(pixveil.ErrDecryptionFailed, "crypto: ciphertext too short")
	}
	salt := data[:saltSize]
	iv := data[saltSize : saltSize+aes.BlockSize]
	ciphertext := data[saltSize+aes.BlockSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.Wrap(pixveil.ErrDecryptionFailed, "crypto: ciphertext not block-aligned")
	}

	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: new AES cipher")
	}

	plainPadded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plainPadded, ciphertext)

	plain, err := pkcs7Unpad(plainPadded)
	if err != nil {
		return nil, errors.Wrap(pixveil.ErrDecryptionFailed, err.Error())
	}
	return plain, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > aes.BlockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-padLen], nil
}

// GzipCompressor implements pixveil.Compressor with stdlib compress/gzip.
type GzipCompressor struct{}

func (GzipCompressor) Strategy() pixveil.CompressionStrategy { return pixveil.StrategyGzip }

func (GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "crypto: gzip write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "crypto: gzip close")
	}
	return buf.Bytes(), nil
}

func (GzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(pixveil.ErrDecompressionFailed, err.Error())
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(pixveil.ErrDecompressionFailed, err.Error())
	}
	return out, nil
}

// BrotliCompressor implements pixveil.Compressor with andybalholm/brotli.
type BrotliCompressor struct{}

func (BrotliCompressor) Strategy() pixveil.CompressionStrategy { return pixveil.StrategyBrotli }

func (BrotliCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "crypto: brotli write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "crypto: brotli close")
	}
	return buf.Bytes(), nil
}

func (BrotliCompressor) Decompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(pixveil.ErrDecompressionFailed, err.Error())
	}
	return out, nil
}

// NoneCompressor implements pixveil.Compressor as a passthrough.
type NoneCompressor struct{}

func (NoneCompressor) Strategy() pixveil.CompressionStrategy { return pixveil.StrategyNone }
func (NoneCompressor) Compress(data []byte) ([]byte, error)  { return data, nil }
func (NoneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

// ForStrategy returns the Compressor implementing the given strategy.
func ForStrategy(s pixveil.CompressionStrategy) (pixveil.Compressor, error) {
	switch s {
	case pixveil.StrategyNone:
		return NoneCompressor{}, nil
	case pixveil.StrategyGzip:
		return GzipCompressor{}, nil
	case pixveil.StrategyBrotli:
		return BrotliCompressor{}, nil
	default:
		return nil, fmt.Errorf("crypto: unknown compression strategy %d", s)
	}
}
