package model

import (
	"fmt"
	"strings"
)

// GameIDLen is the length of a lichess game id.
const GameIDLen = 8

// GameID identifies a source game. It is carried as an opaque token.
type GameID string

// ParseGameID validates s as a game id.
func ParseGameID(s string) (GameID, error) {
	if len(s) != GameIDLen {
		return "", fmt.Errorf("game id %q: want %d characters", s, GameIDLen)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return "", fmt.Errorf("game id %q: invalid character %q", s, c)
		}
	}
	return GameID(s), nil
}

// UnmarshalText validates the id while decoding.
func (id *GameID) UnmarshalText(text []byte) error {
	v, err := ParseGameID(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Color is a side of the board. The zero value means no side (a draw when
// used as a winner).
type Color uint8

// Colors.
const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// MarshalText writes "white", "black" or an empty string.
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText accepts "white", "black" or an empty string.
func (c *Color) UnmarshalText(text []byte) error {
	switch string(text) {
	case "white":
		*c = White
	case "black":
		*c = Black
	case "":
		*c = NoColor
	default:
		return fmt.Errorf("unknown color %q", text)
	}
	return nil
}

// Status is the lichess game status.
type Status string

// Known statuses.
const (
	StatusCreated       Status = "created"
	StatusStarted       Status = "started"
	StatusAborted       Status = "aborted"
	StatusMate          Status = "mate"
	StatusResign        Status = "resign"
	StatusStalemate     Status = "stalemate"
	StatusTimeout       Status = "timeout"
	StatusDraw          Status = "draw"
	StatusOutOfTime     Status = "outoftime"
	StatusCheat         Status = "cheat"
	StatusNoStart       Status = "noStart"
	StatusUnknownFinish Status = "unknownFinish"
	StatusVariantEnd    Status = "variantEnd"
)

var knownStatuses = map[Status]struct{}{
	StatusCreated: {}, StatusStarted: {}, StatusAborted: {}, StatusMate: {},
	StatusResign: {}, StatusStalemate: {}, StatusTimeout: {}, StatusDraw: {},
	StatusOutOfTime: {}, StatusCheat: {}, StatusNoStart: {},
	StatusUnknownFinish: {}, StatusVariantEnd: {},
}

// UnmarshalText rejects statuses lichess does not emit.
func (s *Status) UnmarshalText(text []byte) error {
	v := Status(text)
	if !v.Known() {
		return fmt.Errorf("unknown status %q", text)
	}
	*s = v
	return nil
}

// Known reports whether s is a status lichess emits. The empty status of a
// game decoded without one is not known.
func (s Status) Known() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsOngoing reports whether the game can still change outcome.
func (s Status) IsOngoing() bool {
	return s == StatusCreated || s == StatusStarted
}

// IsUnindexable reports whether the game finished without a meaningful result.
func (s Status) IsUnindexable() bool {
	return s == StatusUnknownFinish || s == StatusNoStart || s == StatusAborted
}

// Variant is the lichess rule variant.
type Variant string

// Known variants.
const (
	VariantAntichess     Variant = "antichess"
	VariantAtomic        Variant = "atomic"
	VariantChess960      Variant = "chess960"
	VariantCrazyhouse    Variant = "crazyhouse"
	VariantFromPosition  Variant = "fromPosition"
	VariantHorde         Variant = "horde"
	VariantKingOfTheHill Variant = "kingOfTheHill"
	VariantRacingKings   Variant = "racingKings"
	VariantStandard      Variant = "standard"
	VariantThreeCheck    Variant = "threeCheck"
)

// Player is one side of a game.
type Player struct {
	User   User `json:"user"`
	Rating int  `json:"rating"`
}

// User is the account behind a player.
type User struct {
	Name string `json:"name"`
}

// Players holds both sides.
type Players struct {
	White Player `json:"white"`
	Black Player `json:"black"`
}

// Game is a game record as exported by the lichess API (NDJSON, one per line).
type Game struct {
	ID         GameID  `json:"id"`
	Rated      bool    `json:"rated"`
	CreatedAt  uint64  `json:"createdAt"` // unix milliseconds
	Status     Status  `json:"status"`
	Variant    Variant `json:"variant"`
	Players    Players `json:"players"`
	Speed      Speed   `json:"speed"`
	Moves      string  `json:"moves"` // space separated SAN
	Winner     Color   `json:"winner,omitempty"`
	InitialFEN string  `json:"initialFen,omitempty"`
}

// SANs splits the move list.
func (g *Game) SANs() []string {
	return strings.Fields(g.Moves)
}

// AverageRating is the mean of both players' ratings.
func (g *Game) AverageRating() int {
	return (g.Players.White.Rating + g.Players.Black.Rating) / 2
}
