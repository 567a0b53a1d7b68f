// Package opening derives the position keys a game passes through.
package opening

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// keyFields is the number of FEN fields that identify a position; the move
// clocks are dropped so transpositions share a key.
const keyFields = 4

// Sentinel errors.
var (
	ErrInvalidFEN  = errors.New("invalid fen")
	ErrIllegalMove = errors.New("illegal move")
)

// Key identifies an opening position: piece placement, side to move,
// castling rights and en passant square. The en passant square is kept only
// when an en passant capture is legal.
type Key string

func (k Key) String() string { return string(k) }

// ParseKey normalizes any FEN into a Key.
func ParseKey(fen string) (Key, error) {
	g, err := newGame(fen)
	if err != nil {
		return "", err
	}
	return keyOf(g.Position()), nil
}

// Walk replays sans from initialFEN (the standard start when empty) and
// returns the distinct positions visited, starting position first, stopping
// after maxPly moves. maxPly <= 0 replays every move. On an illegal move the
// keys visited so far are returned together with an error wrapping
// ErrIllegalMove.
func Walk(initialFEN string, sans []string, maxPly int) ([]Key, error) {
	g, err := newGame(initialFEN)
	if err != nil {
		return nil, err
	}

	if maxPly > 0 && len(sans) > maxPly {
		sans = sans[:maxPly]
	}
	keys := make([]Key, 0, len(sans)+1)
	seen := make(map[Key]struct{}, len(sans)+1)
	visit := func(k Key) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	visit(keyOf(g.Position()))
	for ply, san := range sans {
		if err := g.MoveStr(san); err != nil {
			return keys, fmt.Errorf("%w: ply %d %q: %w", ErrIllegalMove, ply+1, san, err)
		}
		visit(keyOf(g.Position()))
	}
	return keys, nil
}

func newGame(fen string) (*chess.Game, error) {
	if strings.TrimSpace(fen) == "" {
		fen = StartFEN
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidFEN, fen, err)
	}
	return chess.NewGame(opt), nil
}

func keyOf(pos *chess.Position) Key {
	fields := strings.Fields(pos.String())
	if len(fields) > keyFields {
		fields = fields[:keyFields]
	}
	if len(fields) == keyFields && fields[3] != "-" && !canCaptureEnPassant(pos) {
		fields[3] = "-"
	}
	return Key(strings.Join(fields, " "))
}

func canCaptureEnPassant(pos *chess.Position) bool {
	for _, m := range pos.ValidMoves() {
		if m.HasTag(chess.EnPassant) {
			return true
		}
	}
	return false
}
