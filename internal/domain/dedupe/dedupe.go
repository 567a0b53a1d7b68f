// Package dedupe tracks which games were already accepted for indexing.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/explorer/internal/domain/model"
)

const defaultMaxSize = 50000

// Deduper records seen game ids so a game is folded into the index at most
// once.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id model.GameID) bool

	// Unrecord forgets id so a later copy of the game is accepted. Used when
	// a game was rejected after being recorded (backpressure, or still in
	// progress).
	Unrecord(ctx context.Context, id model.GameID)

	Size() int64
}

// Lister is a Deduper whose ids can be saved with the index.
type Lister interface {
	Deduper

	// IDs returns the recorded ids, oldest first when bounded. Replaying
	// them through SeenAndRecord rebuilds the same state.
	IDs(ctx context.Context) []model.GameID
}

// inMemoryDeduper implements Deduper with a map plus an insertion-ordered
// list. When bounded, the oldest id is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[model.GameID]*list.Element
	order   *list.List // front = oldest; nil when unbounded
	maxSize int        // <= 0 means unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Lister {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[model.GameID]*list.Element)
	if d.maxSize > 0 {
		d.order = list.New()
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id model.GameID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.order == nil {
		d.seen[id] = nil
		d.size.Add(1)
		return false
	}

	if len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[id] = d.order.PushBack(id)
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id model.GameID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, exists := d.seen[id]
	if !exists {
		return
	}
	delete(d.seen, id)
	if el != nil {
		d.order.Remove(el)
	}
	d.size.Add(-1)
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	delete(d.seen, d.order.Remove(front).(model.GameID))
	d.size.Add(-1)
}

func (d *inMemoryDeduper) IDs(_ context.Context) []model.GameID {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]model.GameID, 0, len(d.seen))
	if d.order == nil {
		for id := range d.seen {
			ids = append(ids, id)
		}
		return ids
	}
	for el := d.order.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.(model.GameID))
	}
	return ids
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
