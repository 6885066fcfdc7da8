package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFloat32LE(t *testing.T) {
	buf := []byte{0xFF, 0x00, 0x00, 0x80, 0x3F} // 1.0 at offset 1

	got, err := DecodeFloat32LE(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), got)
}

func TestDecodeFloat32LE_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		buf    []byte
		offset int
	}{
		{"empty buffer", nil, 0},
		{"three bytes left", []byte{1, 2, 3, 4, 5, 6}, 3},
		{"offset at end", []byte{1, 2, 3, 4}, 4},
		{"offset past end", []byte{1, 2, 3, 4}, 9},
		{"negative offset", []byte{1, 2, 3, 4}, -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeFloat32LE(tc.buf, tc.offset)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShortBuffer), "got %v", err)
		})
	}
}

func TestDecodeUint64LE(t *testing.T) {
	buf := append([]byte{0x02}, EncodeUint64LE(0x0102030405060708)...)

	got, err := DecodeUint64LE(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), got)

	_, err = DecodeUint64LE(buf, 2)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestEncodeFloat32LE(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x3F}, EncodeFloat32LE(0.5))
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0xBF}, EncodeFloat32LE(-1.0))
	assert.Len(t, EncodeFloat32LE(0), Float32Size)
}

func TestFloat32RoundTripSpecialValues(t *testing.T) {
	for _, v := range []float32{
		float32(math.Inf(1)),
		float32(math.Inf(-1)),
		math.MaxFloat32,
		math.SmallestNonzeroFloat32,
	} {
		got, err := DecodeFloat32LE(EncodeFloat32LE(v), 0)
		require.NoError(t, err)
		assert.Equal(t, math.Float32bits(v), math.Float32bits(got))
	}

	nan := float32(math.NaN())
	got, err := DecodeFloat32LE(EncodeFloat32LE(nan), 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(got)))
}

func TestConcat(t *testing.T) {
	out, err := Concat(6, []byte{0x23, 0x00, 0x01}, []byte{0xAA}, nil, []byte{0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x23, 0x00, 0x01, 0xAA, 0x00, 0x00}, out)
	assert.Equal(t, 6, cap(out))
}

func TestConcat_SizeMismatch(t *testing.T) {
	_, err := Concat(5, []byte{1, 2, 3}, []byte{4, 5, 6})
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = Concat(7, []byte{1, 2, 3}, []byte{4, 5, 6})
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestConcat_DoesNotAliasInputs(t *testing.T) {
	header := []byte{0x23, 0x00, 0x01}
	out, err := Concat(3, header)
	require.NoError(t, err)

	out[0] = 0xFF
	assert.Equal(t, byte(0x23), header[0])
}
