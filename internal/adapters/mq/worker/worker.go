package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/explorer/internal/domain/classify"
	"github.com/okian/explorer/internal/domain/lichess"
	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/internal/domain/opening"
	"github.com/okian/explorer/pkg/logger"
	"github.com/okian/explorer/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Classifier decides where a game contributes.
type Classifier interface {
	Classify(ctx context.Context, g *model.Game) (classify.Result, error)
}

// Merger folds a single-game group into the entry of one position.
type Merger interface {
	Merge(ctx context.Context, key opening.Key, cell lichess.Cell, g lichess.Group) error
}

// Unrecorder forgets a game id so a later copy of the game is accepted.
type Unrecorder interface {
	Unrecord(ctx context.Context, id model.GameID)
}

// Queue defines how workers receive games.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Game
}

// Worker processes games until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the game in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	classifier Classifier
	merger     Merger
	unrecorder Unrecorder
	name       string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(queue Queue, classifier Classifier, merger Merger, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		classifier: classifier,
		merger:     merger,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	games := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case g, ok := <-games:
			if !ok {
				return
			}
			if err := w.processGame(ctx, &g); err != nil {
				w.logger.Error(ctx, "error indexing game", logger.String("game_id", string(g.ID)), logger.Error(err))
			}
		}
	}
}

// Shutdown implements Worker.Shutdown.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processGame classifies g and merges its group into every position it reached.
// Games that must not be indexed are counted and dropped without error.
func (w *InMemoryWorker) processGame(ctx context.Context, g *model.Game) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	res, err := w.classifier.Classify(ctx, g)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		reason := classify.Reason(err)
		metrics.RecordGameSkipped(reason)
		if errors.Is(err, classify.ErrOngoing) && w.unrecorder != nil {
			w.unrecorder.Unrecord(ctx, g.ID)
		}
		w.logger.Debug(ctx, "game skipped",
			logger.String("game_id", string(g.ID)),
			logger.String("reason", reason),
			logger.Error(err),
		)
		return nil
	}

	for _, key := range res.Positions {
		if err := w.merger.Merge(ctx, key, res.Cell, res.Group); err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "merge")
			return fmt.Errorf("merge game %s into %s: %w", g.ID, key, err)
		}
	}
	metrics.RecordGameIndexed()
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker

	metricsInterval time.Duration
	stopMetrics     chan struct{}
	stopOnce        sync.Once

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses a multiple of the CPU count.
func NewPool(workerCount int, queue Queue, classifier Classifier, merger Merger, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:         make([]*InMemoryWorker, workerCount),
		metricsInterval: metrics.RefreshInterval(),
		stopMetrics:     make(chan struct{}),
		logger:          logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, classifier, merger, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// MetricsInterval is how often the pool samples process metrics.
func (p *Pool) MetricsInterval() time.Duration { return p.metricsInterval }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater samples process metrics until the pool stops.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(p.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopMetrics:
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(m.PauseTotalNs) / float64(m.NumGC) / float64(time.Millisecond))
	}
}

// Shutdown waits for the workers to drain the queue, which the caller must
// have closed. Workers still busy when ctx ends are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopMetrics) })

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut++
			w.shutdownOnce.Do(func() { close(w.shutdown) })
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
