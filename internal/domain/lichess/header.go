// Package lichess implements the per-position record format of the opening
// explorer: a packed header per (speed, rating group) cell and the cell
// aggregate it describes.
package lichess

import (
	"errors"
	"fmt"
	"io"

	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/pkg/varint"
)

// Marker byte layout, least significant bit first:
//
//	bits 0-2  speed code 1..6, 0 means End
//	bits 3-5  rating group code 0..6
//	bits 6-7  game count 0..2, or 3 when a varint count follows
const (
	speedMask        = 0b111
	ratingShift      = 3
	ratingMask       = 0b111
	countShift       = 6
	countEscape      = 3
	endMarker   byte = 0
)

// HeaderKind tags a Header.
type HeaderKind uint8

// Header kinds. The zero Header is End.
const (
	HeaderEnd HeaderKind = iota
	HeaderGroup
)

// Header is one unit of the header stream: either the End terminator or the
// description of a non-empty cell and how many game references follow it.
type Header struct {
	Kind        HeaderKind
	Speed       model.Speed
	RatingGroup model.RatingGroup
	NumGames    uint64
}

// EndHeader returns the terminator.
func EndHeader() Header { return Header{} }

// GroupHeader describes a cell with numGames game references.
func GroupHeader(speed model.Speed, rg model.RatingGroup, numGames uint64) Header {
	return Header{Kind: HeaderGroup, Speed: speed, RatingGroup: rg, NumGames: numGames}
}

// IsEnd reports whether h terminates a sequence.
func (h Header) IsEnd() bool { return h.Kind == HeaderEnd }

// Cell returns the cell a group header describes.
func (h Header) Cell() Cell { return Cell{Speed: h.Speed, RatingGroup: h.RatingGroup} }

func (h Header) String() string {
	if h.IsEnd() {
		return "End"
	}
	return fmt.Sprintf("Group{%s, %s, %d}", h.Speed, h.RatingGroup, h.NumGames)
}

// Write encodes h to w. Nothing is written when h holds a value outside the
// closed speed or rating group sets.
func (h Header) Write(w io.Writer) error {
	if h.IsEnd() {
		_, err := w.Write([]byte{endMarker})
		return err
	}
	if h.Kind != HeaderGroup {
		return fmt.Errorf("%w: header kind %d", ErrInvalidData, h.Kind)
	}
	if !h.Speed.Valid() {
		return fmt.Errorf("%w: speed %d", ErrInvalidData, h.Speed)
	}
	if !h.RatingGroup.Valid() {
		return fmt.Errorf("%w: rating group %d", ErrInvalidData, h.RatingGroup)
	}

	count := h.NumGames
	if count > countEscape {
		count = countEscape
	}
	buf := make([]byte, 1, 1+varint.MaxLen)
	buf[0] = speedToCode[h.Speed] | ratingGroupToCode[h.RatingGroup]<<ratingShift | byte(count)<<countShift
	if count == countEscape {
		buf = varint.Append(buf, h.NumGames)
	}
	_, err := w.Write(buf)
	return err
}

// ReadHeader decodes one header from r. An End header consumes exactly one
// byte. Truncated input and reserved codes are reported as ErrInvalidData;
// other reader errors are returned unchanged.
func ReadHeader(r io.ByteReader) (Header, error) {
	n, err := r.ReadByte()
	if err != nil {
		return Header{}, decodeErr(err, "header marker")
	}

	speedCode := n & speedMask
	if speedCode == 0 {
		return EndHeader(), nil
	}
	if speedCode > maxSpeedCode {
		return Header{}, fmt.Errorf("%w: reserved speed code %d", ErrInvalidData, speedCode)
	}

	ratingCode := (n >> ratingShift) & ratingMask
	if ratingCode > maxRatingGroupCode {
		return Header{}, fmt.Errorf("%w: reserved rating group code %d", ErrInvalidData, ratingCode)
	}

	h := GroupHeader(codeToSpeed[speedCode], codeToRatingGroup[ratingCode], uint64(n>>countShift))
	if h.NumGames == countEscape {
		if h.NumGames, err = readCount(r); err != nil {
			return Header{}, err
		}
	}
	return h, nil
}

// ReadSequence decodes headers up to and including End, returning the group
// headers in stream order.
func ReadSequence(r io.ByteReader) ([]Header, error) {
	var out []Header
	for {
		h, err := ReadHeader(r)
		if err != nil {
			return nil, err
		}
		if h.IsEnd() {
			return out, nil
		}
		out = append(out, h)
	}
}

// WriteSequence encodes groups followed by End.
func WriteSequence(w io.Writer, groups []Header) error {
	for _, h := range groups {
		if h.IsEnd() {
			return fmt.Errorf("%w: End inside a header sequence", ErrInvalidData)
		}
		if err := h.Write(w); err != nil {
			return err
		}
	}
	return EndHeader().Write(w)
}

// readCount reads an escaped game count with the varint format the writer
// uses.
func readCount(r io.ByteReader) (uint64, error) {
	return readVarint(r, "game count")
}

func readVarint(r io.ByteReader, what string) (uint64, error) {
	v, err := varint.Read(r)
	if err != nil {
		return 0, decodeErr(err, what)
	}
	return v, nil
}

// decodeErr maps end of stream and varint overflow to ErrInvalidData and
// passes reader failures on unchanged.
func decodeErr(err error, what string) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %s: %w", ErrInvalidData, what, io.ErrUnexpectedEOF)
	case errors.Is(err, varint.ErrOverflow):
		return fmt.Errorf("%w: %s: %w", ErrInvalidData, what, err)
	default:
		return err
	}
}
