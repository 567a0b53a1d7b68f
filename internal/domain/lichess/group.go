package lichess

import "github.com/okian/explorer/internal/domain/model"

// GameRef points a cell back at one sample game.
type GameRef struct {
	CreatedAt uint64       `json:"created_at"` // unix milliseconds
	ID        model.GameID `json:"id"`
}

// Group is the aggregate of one (speed, rating group) cell: outcome counts
// plus sample game references in insertion order. The zero value is empty
// and is the identity for Merge.
type Group struct {
	Stats model.Stats `json:"stats"`
	Games []GameRef   `json:"games"`
}

// Merge returns a new group holding the sum of both stats and a's games
// followed by b's. Neither input is modified or aliased. Duplicate game ids
// are kept.
func Merge(a, b Group) Group {
	out := Group{Stats: a.Stats}
	out.Stats.Add(b.Stats)
	if n := len(a.Games) + len(b.Games); n > 0 {
		out.Games = make([]GameRef, 0, n)
		out.Games = append(out.Games, a.Games...)
		out.Games = append(out.Games, b.Games...)
	}
	return out
}

// Add merges rhs into g in place.
func (g *Group) Add(rhs Group) {
	g.Stats.Add(rhs.Stats)
	g.Games = append(g.Games, rhs.Games...)
}

// IsEmpty reports whether the cell holds neither stats nor games.
func (g Group) IsEmpty() bool {
	return g.Stats.IsZero() && len(g.Games) == 0
}

// Truncate keeps the newest max references, which are the last appended.
// A max of zero or less keeps everything.
func (g *Group) Truncate(max int) {
	if max <= 0 || len(g.Games) <= max {
		return
	}
	kept := make([]GameRef, max)
	copy(kept, g.Games[len(g.Games)-max:])
	g.Games = kept
}
