// Package repository stores the opening index: one serialized entry per position.
package repository

import (
	"context"
	"io"

	"github.com/okian/explorer/internal/domain/lichess"
	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/internal/domain/opening"
)

// Store provides read/write access to the position index.
type Store interface {
	// Merge folds g into the cell of the entry stored under key, creating
	// the entry when the position is new.
	Merge(ctx context.Context, key opening.Key, cell lichess.Cell, g lichess.Group) error

	// Get returns the entry of a position.
	// Returns ErrNotFound if the position was never merged into.
	Get(ctx context.Context, key opening.Key) (lichess.Entry, error)

	// Count returns the number of positions in the index.
	Count(ctx context.Context) int

	// Snapshot writes every entry to w, followed by the ids of the games
	// already folded in, and returns how many entries were written.
	Snapshot(ctx context.Context, w io.Writer, seen []model.GameID) (int, error)

	// Restore replaces the index with the entries read from r and returns
	// how many were loaded along with the saved game ids. The index is
	// unchanged on error.
	Restore(ctx context.Context, r io.Reader) (int, []model.GameID, error)
}
