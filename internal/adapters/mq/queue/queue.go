// Package queue buffers submitted games between the API and the indexing workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/pkg/metrics"
)

const defaultQueueCapacity = 100000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a game without blocking.
	// Returns ErrFull when at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, g model.Game) error

	// Dequeue returns a channel that receives games as they become available.
	// The channel is closed when the queue is closed and drained, or ctx ends.
	Dequeue(ctx context.Context) <-chan model.Game

	// Len returns the current number of queued games.
	Len(ctx context.Context) int

	// Close stops accepting games. Queued games are still delivered.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	games    chan model.Game
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.games = make(chan model.Game, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue implements Queue.Enqueue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, g model.Game) error { //nolint:gocritic // hugeParam: games are passed by value through the channel
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}

	select {
	case q.games <- g:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.games))
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		metrics.RecordErrorByComponent("queue", "full")
		return ErrFull
	}
}

// Dequeue implements Queue.Dequeue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Game {
	out := make(chan model.Game)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case g, ok := <-q.games:
				if !ok {
					return
				}
				select {
				case out <- g:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.games))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len implements Queue.Len.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.games)
}

// Close implements Queue.Close.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.games)
	q.closed = true
	return nil
}

// Drain removes and returns the games still buffered without waiting for
// more. It is used after Close to find games that were never processed.
func (q *InMemoryQueue) Drain() []model.Game {
	var left []model.Game
	for {
		select {
		case g, ok := <-q.games:
			if !ok {
				metrics.UpdateQueueSize(0)
				return left
			}
			left = append(left, g)
		default:
			metrics.UpdateQueueSize(len(q.games))
			return left
		}
	}
}

// IsClosed implements Queue.IsClosed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
