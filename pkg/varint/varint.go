// Package varint implements the unsigned variable-length integer used by the
// explorer's binary formats.
//
// Encoding is little-endian base-128 (LEB128): seven value bits per byte,
// least significant group first, high bit set on every byte but the last.
// A uint64 takes between 1 and MaxLen bytes.
package varint

import (
	"encoding/binary"
	"errors"
	"io"
	"math/bits"
)

// MaxLen is the longest encoding of a uint64.
const MaxLen = binary.MaxVarintLen64

const (
	valueMask    = 0x7f
	continuation = 0x80
	groupBits    = 7
)

// Sentinel errors for malformed encodings.
var (
	ErrOverflow  = errors.New("varint overflows a 64-bit integer")
	ErrTruncated = errors.New("varint truncated")
)

// Append appends the encoding of v to dst. The encoding is the one of
// binary.AppendUvarint.
func Append(dst []byte, v uint64) []byte {
	return binary.AppendUvarint(dst, v)
}

// Len returns the number of bytes Append would produce for v.
func Len(v uint64) int {
	return (bits.Len64(v|1) + groupBits - 1) / groupBits
}

// Write writes the encoding of v to w.
func Write(w io.Writer, v uint64) error {
	var buf [MaxLen]byte
	b := buf[:binary.PutUvarint(buf[:], v)]
	n, err := w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

// Read decodes one value from r.
//
// A stream that ends before the first byte returns io.EOF; a stream that ends
// inside a value returns an error wrapping both ErrTruncated and
// io.ErrUnexpectedEOF. Other reader errors are returned unchanged. Unlike
// binary.ReadUvarint, an overflow is reported as ErrOverflow.
func Read(r io.ByteReader) (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; i < MaxLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				return 0, errors.Join(ErrTruncated, io.ErrUnexpectedEOF)
			}
			return 0, err
		}
		if b < continuation {
			// The tenth byte may only carry the single remaining bit.
			if i == MaxLen-1 && b > 1 {
				return 0, ErrOverflow
			}
			return v | uint64(b)<<shift, nil
		}
		v |= uint64(b&valueMask) << shift
		shift += groupBits
	}
	return 0, ErrOverflow
}

// Decode decodes one value from the front of src and reports how many bytes
// it consumed.
func Decode(src []byte) (uint64, int, error) {
	v, n := binary.Uvarint(src)
	switch {
	case n > 0:
		return v, n, nil
	case n < 0:
		return 0, 0, ErrOverflow
	case len(src) == 0:
		return 0, 0, io.EOF
	default:
		return 0, 0, errors.Join(ErrTruncated, io.ErrUnexpectedEOF)
	}
}
