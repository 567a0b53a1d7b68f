package service

import (
	"net/http"
	"time"

	"github.com/okian/explorer/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of indexing workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the game queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many game ids are remembered. Zero means unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithMaxPly limits how many moves of each game are indexed.
func WithMaxPly(ply int) Option {
	return func(s *Service) {
		if ply > 0 {
			s.maxPly = ply
		}
	}
}

// WithMaxGamesPerCell bounds the game references kept per cell. Zero keeps all.
func WithMaxGamesPerCell(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxGamesPerCell = n
		}
	}
}

// WithCasualGames also indexes unrated games.
func WithCasualGames(enabled bool) Option {
	return func(s *Service) {
		s.casual = enabled
	}
}

// WithSnapshotPath enables restoring the index on Start and saving it on Stop.
func WithSnapshotPath(path string) Option {
	return func(s *Service) {
		s.snapshotPath = path
	}
}

// WithLilaBaseURL sets the lichess API root used by ImportUser.
func WithLilaBaseURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.lilaBaseURL = url
		}
	}
}

// WithLilaTimeout bounds one user import.
func WithLilaTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lilaTimeout = d
		}
	}
}

// WithLilaHTTPClient replaces the HTTP client used for imports.
func WithLilaHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		s.lilaHTTP = hc
	}
}

// WithMaxConcurrentImports caps the user imports running at once.
func WithMaxConcurrentImports(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImports = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
