// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okian/explorer/internal/adapters/lila"
	gamequeue "github.com/okian/explorer/internal/adapters/mq/queue"
	workerpool "github.com/okian/explorer/internal/adapters/mq/worker"
	"github.com/okian/explorer/internal/adapters/repository"
	"github.com/okian/explorer/internal/domain/classify"
	"github.com/okian/explorer/internal/domain/dedupe"
	"github.com/okian/explorer/internal/domain/lichess"
	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/internal/domain/opening"
	"github.com/okian/explorer/pkg/logger"
	"github.com/okian/explorer/pkg/metrics"
)

const (
	defaultMaxImports  = 4
	importRetryBackoff = 10 * time.Millisecond
)

// Service implements the API dependencies for the opening explorer.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *repository.MemStore
	deduper    dedupe.Lister
	classifier *classify.Classifier
	lila       *lila.Client
	queue      *gamequeue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	shardCount      int
	maxPly          int
	maxGamesPerCell int
	casual          bool
	snapshotPath    string
	lilaBaseURL     string
	lilaTimeout     time.Duration
	lilaHTTP        *http.Client
	maxImports      int

	// Imports run on runCtx so they outlive the request that started them.
	importsMu sync.Mutex
	imports   map[string]struct{}
	importWG  sync.WaitGroup
	runCtx    context.Context
	cancelRun context.CancelFunc

	started bool

	logger logger.Logger
}

// New constructs a new Service. Components that hold state are created here
// so lookups and dedupe work before Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       100_000,
		dedupeSize:      50_000,
		shardCount:      16,
		maxPly:          40,
		maxGamesPerCell: 15,
		lilaBaseURL:     "https://lichess.org",
		lilaTimeout:     time.Minute,
		maxImports:      defaultMaxImports,
		imports:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.store = repository.NewMemStore(
		repository.WithShardCount(s.shardCount),
		repository.WithMaxGamesPerCell(s.maxGamesPerCell),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.classifier = classify.New(
		classify.WithMaxPly(s.maxPly),
		classify.WithCasualGames(s.casual),
	)
	s.lila = lila.NewClient(s.lilaBaseURL,
		lila.WithTimeout(s.lilaTimeout),
		lila.WithHTTPClient(s.lilaHTTP),
	)
	return s
}

// Start restores the snapshot, if any, and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting explorer service...")

	if err := s.restoreSnapshot(ctx); err != nil {
		return err
	}

	s.runCtx, s.cancelRun = context.WithCancel(context.WithoutCancel(ctx))
	s.queue = gamequeue.NewInMemoryQueue(gamequeue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.classifier, s.store,
		workerpool.WithUnrecorder(s.deduper))
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "explorer service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("positions", s.store.Count(ctx)),
	)
	return nil
}

// Stop drains the queue, cancels running imports and saves the snapshot.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping explorer service...")

	// Imports feed the queue, so they stop first.
	s.cancelRun()
	s.importWG.Wait()

	_ = s.queue.Close()
	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	// Games still queued were recorded but never indexed. Forget them so a
	// resubmission after restart is accepted.
	if left := s.queue.Drain(); len(left) > 0 {
		for i := range left {
			s.deduper.Unrecord(ctx, left[i].ID)
		}
		s.logger.Warn(ctx, "dropped unindexed games on stop", logger.Int("games", len(left)))
	}
	if err := s.saveSnapshot(ctx); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "explorer service stopped", logger.Int("positions", s.store.Count(ctx)))
	return errors.Join(errs...)
}

func (s *Service) restoreSnapshot(ctx context.Context) error {
	if s.snapshotPath == "" {
		return nil
	}
	f, err := os.Open(s.snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info(ctx, "no snapshot to restore", logger.String("path", s.snapshotPath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrSnapshot, s.snapshotPath, err)
	}
	defer func() { _ = f.Close() }()

	start := time.Now()
	n, seen, err := s.store.Restore(ctx, f)
	if err != nil {
		metrics.RecordErrorByComponent("service", "snapshot_restore")
		return fmt.Errorf("%w: restore %s: %w", ErrSnapshot, s.snapshotPath, err)
	}
	for _, id := range seen {
		s.deduper.SeenAndRecord(ctx, id)
	}
	var size int64
	if info, statErr := f.Stat(); statErr == nil {
		size = info.Size()
	}
	metrics.RecordSnapshot("restore", float64(time.Since(start).Milliseconds()), size)
	s.logger.Info(ctx, "snapshot restored",
		logger.String("path", s.snapshotPath),
		logger.Int("positions", n),
		logger.Int("seen_games", len(seen)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// saveSnapshot writes a temporary file next to the target and renames it
// over the target once synced.
func (s *Service) saveSnapshot(ctx context.Context) error {
	if s.snapshotPath == "" {
		return nil
	}
	start := time.Now()
	tmp, err := os.CreateTemp(filepath.Dir(s.snapshotPath), filepath.Base(s.snapshotPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshot, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	seen := s.deduper.IDs(ctx)
	n, err := s.store.Snapshot(ctx, tmp, seen)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), s.snapshotPath)
	}
	if err != nil {
		metrics.RecordErrorByComponent("service", "snapshot_save")
		return fmt.Errorf("%w: save %s: %w", ErrSnapshot, s.snapshotPath, err)
	}

	var size int64
	if info, statErr := os.Stat(s.snapshotPath); statErr == nil {
		size = info.Size()
	}
	metrics.RecordSnapshot("save", float64(time.Since(start).Milliseconds()), size)
	s.logger.Info(ctx, "snapshot saved",
		logger.String("path", s.snapshotPath),
		logger.Int("positions", n),
		logger.Int("seen_games", len(seen)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// SeenAndRecord atomically checks if a game id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id model.GameID) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes a game id from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id model.GameID) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue submits a game for asynchronous indexing without blocking.
func (s *Service) Enqueue(ctx context.Context, g model.Game) error { //nolint:gocritic // hugeParam: games travel by value
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	return q.Enqueue(ctx, g)
}

// ImportUser fetches every game of user from lichess in the background and
// submits the ones not seen yet. The request context only bounds validation;
// the import itself runs until it finishes or the service stops.
func (s *Service) ImportUser(ctx context.Context, user string) error {
	if !lila.ValidUserName(user) {
		return fmt.Errorf("%w: %q", lila.ErrInvalidUser, user)
	}
	s.mu.RLock()
	started, runCtx := s.started, s.runCtx
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	name := strings.ToLower(user)
	s.importsMu.Lock()
	if _, running := s.imports[name]; running {
		s.importsMu.Unlock()
		return fmt.Errorf("%w: %s", ErrImportRunning, user)
	}
	if len(s.imports) >= s.maxImports {
		s.importsMu.Unlock()
		return fmt.Errorf("%w: limit %d", ErrImportBusy, s.maxImports)
	}
	s.imports[name] = struct{}{}
	s.importWG.Add(1)
	s.importsMu.Unlock()

	s.logger.Info(ctx, "import started", logger.String("user", user))
	go func() {
		defer s.importWG.Done()
		defer func() {
			s.importsMu.Lock()
			delete(s.imports, name)
			s.importsMu.Unlock()
		}()
		s.runImport(runCtx, user)
	}()
	return nil
}

func (s *Service) runImport(ctx context.Context, user string) {
	start := time.Now()
	var accepted, duplicates int
	n, err := s.lila.UserGames(ctx, user, func(g model.Game) error {
		metrics.RecordGameReceived()
		if s.deduper.SeenAndRecord(ctx, g.ID) {
			metrics.RecordGameDuplicate()
			duplicates++
			return nil
		}
		if err := s.enqueueWait(ctx, g); err != nil {
			s.deduper.Unrecord(ctx, g.ID)
			return err
		}
		accepted++
		return nil
	})
	fields := []logger.Field{
		logger.String("user", user),
		logger.Int("games", n),
		logger.Int("accepted", accepted),
		logger.Int("duplicates", duplicates),
		logger.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		metrics.RecordErrorByComponent("service", "import")
		s.logger.Error(ctx, "import failed", append(fields, logger.Error(err))...)
		return
	}
	s.logger.Info(ctx, "import finished", fields...)
}

// enqueueWait retries while the queue is full.
func (s *Service) enqueueWait(ctx context.Context, g model.Game) error { //nolint:gocritic // hugeParam: games travel by value
	for {
		err := s.queue.Enqueue(ctx, g)
		if !errors.Is(err, gamequeue.ErrFull) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(importRetryBackoff):
		}
	}
}

// Lookup returns the indexed cells of the position described by fen.
func (s *Service) Lookup(ctx context.Context, fen string) (opening.Key, lichess.Entry, error) {
	key, err := opening.ParseKey(fen)
	if err != nil {
		return "", lichess.Entry{}, err
	}
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		return key, lichess.Entry{}, err
	}
	return key, entry, nil
}

// Store exposes the position index.
func (s *Service) Store() repository.Store {
	return s.store
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	s.importsMu.Lock()
	activeImports := len(s.imports)
	s.importsMu.Unlock()

	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"maxPly":        s.maxPly,
		"positions":     s.store.Count(ctx),
		"dedupeEntries": s.deduper.Size(),
		"activeImports": activeImports,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
	}
	return stats
}
