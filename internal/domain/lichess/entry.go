package lichess

import (
	"bytes"
	"fmt"
	"io"

	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/pkg/varint"
)

// Cell is one classification bucket of a position.
type Cell struct {
	Speed       model.Speed       `json:"speed"`
	RatingGroup model.RatingGroup `json:"rating_group"`
}

// Valid reports whether both axes are inside their closed sets.
func (c Cell) Valid() bool { return c.Speed.Valid() && c.RatingGroup.Valid() }

// Cells returns every cell in canonical order: speed, then rating group.
func Cells() []Cell {
	out := make([]Cell, 0, model.NumSpeeds*model.NumRatingGroups)
	for _, s := range model.Speeds() {
		for _, rg := range model.RatingGroups() {
			out = append(out, Cell{Speed: s, RatingGroup: rg})
		}
	}
	return out
}

// Entry is the set of non-empty cells recorded for one opening position.
// Copies share cells; use Clone before mutating a copy independently.
type Entry struct {
	groups map[Cell]Group
}

// CellGroup pairs a cell with its aggregate.
type CellGroup struct {
	Cell
	Group
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	var out Entry
	for c, g := range e.groups {
		_ = out.Add(c, Merge(g, Group{}))
	}
	return out
}

// Groups returns the recorded cells with their aggregates in canonical order.
func (e Entry) Groups() []CellGroup {
	cells := e.NonEmpty()
	out := make([]CellGroup, len(cells))
	for i, c := range cells {
		out[i] = CellGroup{Cell: c, Group: e.groups[c]}
	}
	return out
}

// Group returns the aggregate for c, empty when nothing was recorded.
func (e Entry) Group(c Cell) Group {
	return e.groups[c]
}

// Len is the number of non-empty cells.
func (e Entry) Len() int { return len(e.groups) }

// Add merges g into cell c.
func (e *Entry) Add(c Cell, g Group) error {
	if !c.Valid() {
		return fmt.Errorf("%w: cell %s/%s", ErrInvalidData, c.Speed, c.RatingGroup)
	}
	if g.IsEmpty() {
		return nil
	}
	if e.groups == nil {
		e.groups = make(map[Cell]Group)
	}
	cur := e.groups[c]
	cur.Add(g)
	e.groups[c] = cur
	return nil
}

// Merge folds other into e cell by cell, e's games first.
func (e *Entry) Merge(other Entry) {
	for c, g := range other.groups {
		_ = e.Add(c, g)
	}
}

// Truncate bounds the sample list of every cell.
func (e *Entry) Truncate(max int) {
	for c, g := range e.groups {
		g.Truncate(max)
		e.groups[c] = g
	}
}

// Total sums stats over every cell.
func (e Entry) Total() model.Stats {
	var total model.Stats
	for _, g := range e.groups {
		total.Add(g.Stats)
	}
	return total
}

// NonEmpty returns the recorded cells in canonical order.
func (e Entry) NonEmpty() []Cell {
	out := make([]Cell, 0, len(e.groups))
	for _, c := range Cells() {
		if _, ok := e.groups[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Write serializes e as a header sequence on headers and, for each header,
// the cell's stats and game references on refs. Both streams are built
// before either writer is touched, so nothing is written when e is invalid.
//
// Reference stream layout per cell: four varints (white, draws, black,
// rating sum), then per game a varint creation time and the raw id bytes.
func (e Entry) Write(headers, refs io.Writer) error {
	var hbuf bytes.Buffer
	var rbuf []byte
	for _, c := range e.NonEmpty() {
		g := e.groups[c]
		if err := GroupHeader(c.Speed, c.RatingGroup, uint64(len(g.Games))).Write(&hbuf); err != nil {
			return err
		}

		rbuf = appendStats(rbuf, g.Stats)
		for _, ref := range g.Games {
			if len(ref.ID) != model.GameIDLen {
				return fmt.Errorf("%w: game id %q", ErrInvalidData, ref.ID)
			}
			rbuf = varint.Append(rbuf, ref.CreatedAt)
			rbuf = append(rbuf, ref.ID...)
		}
	}
	if err := EndHeader().Write(&hbuf); err != nil {
		return err
	}

	if _, err := headers.Write(hbuf.Bytes()); err != nil {
		return err
	}
	_, err := refs.Write(rbuf)
	return err
}

// ReadEntry is the inverse of Entry.Write.
func ReadEntry(headers, refs io.ByteReader) (Entry, error) {
	var e Entry
	for {
		h, err := ReadHeader(headers)
		if err != nil {
			return Entry{}, err
		}
		if h.IsEnd() {
			return e, nil
		}
		if _, dup := e.groups[h.Cell()]; dup {
			return Entry{}, fmt.Errorf("%w: cell %s/%s repeated", ErrInvalidData, h.Speed, h.RatingGroup)
		}

		g, err := readGroup(refs, h.NumGames)
		if err != nil {
			return Entry{}, err
		}
		if e.groups == nil {
			e.groups = make(map[Cell]Group)
		}
		e.groups[h.Cell()] = g
	}
}

// MarshalEntry frames both streams into one buffer:
// varint(len(headers)) headers refs.
func MarshalEntry(e Entry) ([]byte, error) {
	var headers, refs bytes.Buffer
	if err := e.Write(&headers, &refs); err != nil {
		return nil, err
	}
	out := make([]byte, 0, varint.Len(uint64(headers.Len()))+headers.Len()+refs.Len())
	out = varint.Append(out, uint64(headers.Len()))
	out = append(out, headers.Bytes()...)
	return append(out, refs.Bytes()...), nil
}

// UnmarshalEntry decodes a buffer produced by MarshalEntry. Trailing bytes
// are an error.
func UnmarshalEntry(data []byte) (Entry, error) {
	n, used, err := varint.Decode(data)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: header length: %w", ErrInvalidData, err)
	}
	data = data[used:]
	if n > uint64(len(data)) {
		return Entry{}, fmt.Errorf("%w: header length %d exceeds %d bytes", ErrInvalidData, n, len(data))
	}

	headers := bytes.NewReader(data[:n])
	refs := bytes.NewReader(data[n:])
	e, err := ReadEntry(headers, refs)
	if err != nil {
		return Entry{}, err
	}
	if headers.Len() != 0 || refs.Len() != 0 {
		return Entry{}, fmt.Errorf("%w: %d trailing bytes", ErrInvalidData, headers.Len()+refs.Len())
	}
	return e, nil
}

func appendStats(dst []byte, s model.Stats) []byte {
	dst = varint.Append(dst, s.White)
	dst = varint.Append(dst, s.Draws)
	dst = varint.Append(dst, s.Black)
	return varint.Append(dst, s.RatingSum)
}

func readGroup(r io.ByteReader, numGames uint64) (Group, error) {
	var g Group
	for _, field := range []*uint64{&g.Stats.White, &g.Stats.Draws, &g.Stats.Black, &g.Stats.RatingSum} {
		v, err := readVarint(r, "stats")
		if err != nil {
			return Group{}, err
		}
		*field = v
	}

	// Grow as references arrive; numGames comes from untrusted input.
	for i := uint64(0); i < numGames; i++ {
		createdAt, err := readVarint(r, "game reference")
		if err != nil {
			return Group{}, err
		}
		var id [model.GameIDLen]byte
		for j := range id {
			if id[j], err = r.ReadByte(); err != nil {
				return Group{}, decodeErr(err, "game id")
			}
		}
		g.Games = append(g.Games, GameRef{CreatedAt: createdAt, ID: model.GameID(id[:])})
	}
	return g, nil
}
