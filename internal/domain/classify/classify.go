// Package classify decides whether and where a finished game is folded into
// the opening index.
package classify

import (
	"context"
	"fmt"

	"github.com/okian/explorer/internal/domain/lichess"
	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/internal/domain/opening"
)

// Default classification constants.
const (
	defaultMaxPly = 40
)

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithMaxPly bounds how deep into a game positions are indexed.
func WithMaxPly(maxPly int) Option {
	return func(c *Classifier) {
		if maxPly > 0 {
			c.maxPly = maxPly
		}
	}
}

// WithCasualGames also indexes unrated games.
func WithCasualGames(enabled bool) Option {
	return func(c *Classifier) {
		c.casual = enabled
	}
}

// Result is where and what a game contributes.
type Result struct {
	Cell      lichess.Cell
	Group     lichess.Group // one game: outcome stats and a single reference
	Positions []opening.Key
}

// Classifier maps game records to index contributions.
type Classifier struct {
	maxPly int
	casual bool
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{maxPly: defaultMaxPly}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the contribution of g, or an error wrapping one of the
// package sentinels when g must not be indexed. ErrOngoing means the game may
// be indexed once it finishes.
func (c *Classifier) Classify(ctx context.Context, g *model.Game) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	switch {
	case g.ID == "":
		return Result{}, fmt.Errorf("%w: missing id", ErrInvalidGame)
	case !g.Status.Known():
		return Result{}, fmt.Errorf("%w: %s has status %q", ErrInvalidGame, g.ID, g.Status)
	case g.Status.IsOngoing():
		return Result{}, fmt.Errorf("%w: %s is %s", ErrOngoing, g.ID, g.Status)
	case g.Status.IsUnindexable():
		return Result{}, fmt.Errorf("%w: %s is %s", ErrUnindexable, g.ID, g.Status)
	case !g.Rated && !c.casual:
		return Result{}, fmt.Errorf("%w: %s", ErrCasual, g.ID)
	}

	initialFEN := ""
	switch g.Variant {
	case model.VariantStandard, "":
	case model.VariantFromPosition:
		initialFEN = g.InitialFEN
	default:
		return Result{}, fmt.Errorf("%w: %s is %s", ErrVariant, g.ID, g.Variant)
	}

	if !g.Speed.Valid() {
		return Result{}, fmt.Errorf("%w: %s has speed %s", ErrInvalidGame, g.ID, g.Speed)
	}
	avg := g.AverageRating()
	rg, ok := model.SelectRatingGroup(avg)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s averages %d", ErrRatingTooLow, g.ID, avg)
	}

	positions, err := opening.Walk(initialFEN, g.SANs(), c.maxPly)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrInvalidGame, g.ID, err)
	}

	return Result{
		Cell: lichess.Cell{Speed: g.Speed, RatingGroup: rg},
		Group: lichess.Group{
			Stats: model.StatsFor(g.Winner, uint64(avg)),
			Games: []lichess.GameRef{{CreatedAt: g.CreatedAt, ID: g.ID}},
		},
		Positions: positions,
	}, nil
}
