package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/explorer/internal/domain/lichess"
	"github.com/okian/explorer/internal/domain/opening"
	"github.com/okian/explorer/pkg/metrics"
)

const defaultShardCount = 16

type shard struct {
	mu      sync.RWMutex
	entries map[opening.Key][]byte
}

// MemStore keeps entries in memory in their wire encoding, spread over
// shards by key hash. Merges into one key are serialized by its shard lock.
type MemStore struct {
	shardCount      int
	maxGamesPerCell int
	shards          []*shard
	count           atomic.Int64
}

var _ Store = (*MemStore)(nil)

// NewMemStore constructs an empty store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = newShards(s.shardCount)
	return s
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{entries: make(map[opening.Key][]byte)}
	}
	return shards
}

func xxhash64(key opening.Key) uint64 { return xxhash.Sum64String(string(key)) }

func (s *MemStore) shardFor(key opening.Key) *shard {
	return s.shards[xxhash64(key)%uint64(len(s.shards))]
}

// Merge implements Store.Merge.
func (s *MemStore) Merge(ctx context.Context, key opening.Key, cell lichess.Cell, g lichess.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !cell.Valid() {
		return fmt.Errorf("%w: cell %s/%s", lichess.ErrInvalidData, cell.Speed, cell.RatingGroup)
	}
	if g.IsEmpty() {
		return nil
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreMergeLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var entry lichess.Entry
	raw, exists := sh.entries[key]
	if exists {
		var err error
		if entry, err = lichess.UnmarshalEntry(raw); err != nil {
			metrics.RecordEntryDecodeError()
			metrics.RecordErrorByComponent("repository", "decode")
			return fmt.Errorf("decode entry %s: %w", key, err)
		}
		metrics.RecordEntryDecoded()
	}
	if err := entry.Add(cell, g); err != nil {
		return err
	}
	entry.Truncate(s.maxGamesPerCell)

	encoded, err := lichess.MarshalEntry(entry)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "encode")
		return fmt.Errorf("encode entry %s: %w", key, err)
	}
	metrics.RecordEntryEncoded(len(encoded))
	metrics.RecordCellMerge(cell.Speed.String(), cell.RatingGroup.String())

	sh.entries[key] = encoded
	if !exists {
		metrics.UpdatePositionsTotal(int(s.count.Add(1)))
	}
	return nil
}

// Get implements Store.Get.
func (s *MemStore) Get(ctx context.Context, key opening.Key) (lichess.Entry, error) {
	if err := ctx.Err(); err != nil {
		return lichess.Entry{}, err
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreLookupLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	sh := s.shardFor(key)
	sh.mu.RLock()
	raw, ok := sh.entries[key]
	sh.mu.RUnlock()
	if !ok {
		return lichess.Entry{}, ErrNotFound
	}

	entry, err := lichess.UnmarshalEntry(raw)
	if err != nil {
		metrics.RecordEntryDecodeError()
		metrics.RecordErrorByComponent("repository", "decode")
		return lichess.Entry{}, fmt.Errorf("decode entry %s: %w", key, err)
	}
	metrics.RecordEntryDecoded()
	return entry, nil
}

// Count implements Store.Count.
func (s *MemStore) Count(_ context.Context) int {
	return int(s.count.Load())
}
