package varint

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	testCases := []struct {
		name     string
		value    uint64
		expected []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one byte max", 127, []byte{0x7f}},
		{"two bytes min", 128, []byte{0x80, 0x01}},
		{"three hundred", 300, []byte{0xac, 0x02}},
		{"hundred thousand", 100000, []byte{0xa0, 0x8d, 0x06}},
		{"max uint64", math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Append(nil, tc.value)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, len(tc.expected), Len(tc.value))
		})
	}
}

func TestAppend_MatchesEncodingBinary(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 16383, 16384, 1 << 35, math.MaxUint32, math.MaxUint64 - 1, math.MaxUint64} {
		want := binary.AppendUvarint(nil, v)
		assert.Equal(t, want, Append(nil, v), "value %d", v)
		assert.Equal(t, len(want), Len(v), "value %d", v)

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, v))
		assert.Equal(t, want, buf.Bytes(), "value %d", v)

		got, n := binary.Uvarint(buf.Bytes())
		assert.Equal(t, v, got)
		assert.Equal(t, len(want), n)
	}
}

func TestWriteRead(t *testing.T) {
	values := []uint64{0, 1, 2, 3, 127, 128, 255, 256, 16383, 16384, 100000, math.MaxUint32, math.MaxUint64}

	var buf bytes.Buffer
	for _, v := range values {
		require.NoError(t, Write(&buf, v))
	}

	for _, want := range values {
		got, err := Read(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := Read(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRead_Errors(t *testing.T) {
	t.Run("truncated value", func(t *testing.T) {
		_, err := Read(bytes.NewReader([]byte{0x80, 0x80}))
		assert.ErrorIs(t, err, ErrTruncated)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("eleven continuation bytes overflow", func(t *testing.T) {
		src := bytes.Repeat([]byte{0xff}, 11)
		_, err := Read(bytes.NewReader(src))
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("tenth byte too large", func(t *testing.T) {
		src := append(bytes.Repeat([]byte{0xff}, 9), 0x02)
		_, err := Read(bytes.NewReader(src))
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("reader failure passes through", func(t *testing.T) {
		boom := errors.New("disk on fire")
		r := bufio.NewReader(io.MultiReader(bytes.NewReader([]byte{0x80}), &failingReader{err: boom}))
		_, err := Read(r)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrTruncated)
	})
}

func TestDecode(t *testing.T) {
	src := Append(Append(nil, 300), 5)

	v, n, err := Decode(src)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), v)
	assert.Equal(t, 2, n)

	v, n, err = Decode(src[n:])
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)
	assert.Equal(t, 1, n)

	_, _, err = Decode(nil)
	assert.ErrorIs(t, err, io.EOF)

	_, _, err = Decode([]byte{0x81})
	assert.ErrorIs(t, err, ErrTruncated)

	_, _, err = Decode(bytes.Repeat([]byte{0xff}, 11))
	assert.ErrorIs(t, err, ErrOverflow)

	_, _, err = Decode(append(bytes.Repeat([]byte{0xff}, 9), 0x02))
	assert.ErrorIs(t, err, ErrOverflow)
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
