package bits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertExtractRoundTrip(t *testing.T) {
	for b := 0; b < 256; b += 17 {
		for k := 1; k <= 8; k++ {
			max := 1 << uint(k)
			for v := 0; v < max; v++ {
				got := ExtractBits(InsertBits(byte(b), byte(v), 0, k), 0, k)
				require.Equal(t, byte(v), got, "b=%d k=%d v=%d", b, k, v)
			}
		}
	}
}

// S4
func TestInsertExtractLiteralValues(t *testing.T) {
	require.EqualValues(t, 0b00010100, InsertBits(0b00000000, 0b101, 2, 3))
	require.EqualValues(t, 0b10001111, InsertBits(0b11111111, 0b000, 4, 3))
	require.EqualValues(t, 0b1100, ExtractBits(0b10101100, 0, 4))
	require.EqualValues(t, 0b011, ExtractBits(0b10101100, 2, 3))
}

func TestInsertBitsIdempotent(t *testing.T) {
	b := byte(0b11010011)
	once := InsertBits(b, 0b10, 4, 2)
	twice := InsertBits(once, 0b10, 4, 2)
	require.Equal(t, once, twice)
}

func TestChannelAddress(t *testing.T) {
	seq := []Channel{G, R, B}
	idx, err := Address(0, seq, 3, 30)
	require.NoError(t, err)
	require.Equal(t, 1, idx) // pixel 0, G offset 1

	idx, err = Address(3, seq, 3, 30)
	require.NoError(t, err)
	require.Equal(t, 4, idx) // pixel 1, G offset 1 -> 1*3+1

	_, err = Address(100, seq, 3, 30)
	require.Error(t, err)
	var oob *ErrOutOfBounds
	require.ErrorAs(t, err, &oob)
}

// S5
func TestBitmapSetIsBitSet(t *testing.T) {
	m := NewBitmap(8)
	m.SetBit(0)
	m.SetBit(3)
	m.SetBit(7)
	for i := 0; i < 8; i++ {
		want := i == 0 || i == 3 || i == 7
		require.Equal(t, want, m.IsBitSet(i), "bit %d", i)
	}
}

func TestBitmapTwoBytes(t *testing.T) {
	m := NewBitmap(16)
	m.SetBit(8)
	m.SetBit(15)
	require.False(t, m.IsBitSet(0))
	require.True(t, m.IsBitSet(8))
	require.True(t, m.IsBitSet(15))
}

func TestBitmapRangeFreeAndSetRange(t *testing.T) {
	m := NewBitmap(32)
	require.True(t, m.RangeFree(0, 10))
	m.SetRange(0, 10)
	require.False(t, m.RangeFree(0, 10))
	require.False(t, m.RangeFree(5, 10))
	require.True(t, m.RangeFree(10, 5))
}
