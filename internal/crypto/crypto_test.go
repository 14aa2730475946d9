package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pixveil/pixveil"
)

func TestAESCBCRoundTrip(t *testing.T) {
	enc := AESCBCEncrypter{}
	plain := []byte("Hello, World! This is a test payload spanning several AES blocks.")

	ciphertext, err := enc.Encrypt(plain, "correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, plain, ciphertext)

	recovered, err := enc.Decrypt(ciphertext, "correct horse battery staple")
	require.NoError(t, err)
	require.Equal(t, plain, recovered)
}

func TestAESCBCWrongPasswordFails(t *testing.T) {
	enc := AESCBCEncrypter{}
	ciphertext, err := enc.Encrypt([]byte("secret"), "right-password")
	require.NoError(t, err)

	_, err = enc.Decrypt(ciphertext, "wrong-password")
	require.Error(t, err)
}

func TestCompressorsRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, repeated: " +
		"the quick brown fox jumps over the lazy dog")

	for _, strategy := range []pixveil.CompressionStrategy{
		pixveil.StrategyNone, pixveil.StrategyGzip, pixveil.StrategyBrotli,
	} {
		c, err := ForStrategy(strategy)
		require.NoError(t, err)

		compressed, err := c.Compress(data)
		require.NoError(t, err)

		out, err := c.Decompress(compressed)
		require.NoError(t, err)
		require.Equal(t, data, out, "strategy=%s", strategy)
	}
}

func TestSHA256Hex(t *testing.T) {
	h := SHA256Hasher{}
	// Known vector for empty input.
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", h.SHA256Hex(nil))
}
