// Package codec encodes and decodes the little-endian fixed-width fields used
// by the teleoperation wire formats. It has no knowledge of any particular
// protocol: callers supply offsets and sizes, and every read is bounds checked.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShortBuffer is returned when a read would run past the end of the buffer.
	ErrShortBuffer = errors.New("short buffer")
	// ErrSizeMismatch is returned by Concat when the parts do not add up to the
	// declared output size.
	ErrSizeMismatch = errors.New("size mismatch")
)

// Float32Size and Uint64Size are the encoded widths of the supported fields.
const (
	Float32Size = 4
	Uint64Size  = 8
)

func remaining(buf []byte, offset int) int {
	if offset < 0 || offset > len(buf) {
		return 0
	}
	return len(buf) - offset
}

func checkBounds(buf []byte, offset, width int) error {
	if offset < 0 || remaining(buf, offset) < width {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrShortBuffer, width, offset, remaining(buf, offset))
	}
	return nil
}

// DecodeFloat32LE reads an IEEE-754 float32 stored little-endian at offset.
func DecodeFloat32LE(buf []byte, offset int) (float32, error) {
	if err := checkBounds(buf, offset, Float32Size); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:])), nil
}

// DecodeUint64LE reads an unsigned 64-bit integer stored little-endian at offset.
func DecodeUint64LE(buf []byte, offset int) (uint64, error) {
	if err := checkBounds(buf, offset, Uint64Size); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[offset:]), nil
}

// EncodeFloat32LE returns the 4-byte little-endian encoding of v. NaN and
// infinities are encoded bit-for-bit.
func EncodeFloat32LE(v float32) []byte {
	out := make([]byte, Float32Size)
	binary.LittleEndian.PutUint32(out, math.Float32bits(v))
	return out
}

// EncodeUint64LE returns the 8-byte little-endian encoding of v.
func EncodeUint64LE(v uint64) []byte {
	out := make([]byte, Uint64Size)
	binary.LittleEndian.PutUint64(out, v)
	return out
}

// Concat joins parts in order into a freshly allocated buffer of exactly size
// bytes. If the parts sum to anything else no buffer is returned.
func Concat(size int, parts ...[]byte) ([]byte, error) {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	if total != size {
		return nil, fmt.Errorf("%w: parts total %d bytes, want %d", ErrSizeMismatch, total, size)
	}

	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}
