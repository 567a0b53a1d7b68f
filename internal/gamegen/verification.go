package gamegen

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/explorer/internal/domain/opening"
	"github.com/okian/explorer/pkg/logger"
)

// startFEN is the position every standard game passes through.
const startFEN = opening.StartFEN

// WaitForIndexing polls the start position until it holds at least want
// games or cfg.SettleTimeout elapses, and returns the last observed total.
func WaitForIndexing(ctx context.Context, cfg *Config, want uint64) (uint64, error) {
	client := newHTTPClient(cfg.Timeout)
	deadline := time.Now().Add(cfg.SettleTimeout)
	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()

	for {
		resp, err := FetchPosition(ctx, client, cfg.BaseURL, startFEN)
		if err != nil {
			return 0, err
		}
		got := resp.Total()
		if got >= want || time.Now().After(deadline) {
			return got, nil
		}
		select {
		case <-ctx.Done():
			return got, ctx.Err()
		case <-ticker.C:
		}
	}
}

// VerifyResults checks that every accepted indexable game reached the start
// position. A service that already held games may report more.
func VerifyResults(ctx context.Context, stats *Stats) error {
	log := logger.Named("gamegen")
	if stats.ObservedAtStart < stats.ExpectedAtStart {
		return fmt.Errorf("start position holds %d games, expected at least %d",
			stats.ObservedAtStart, stats.ExpectedAtStart)
	}
	if stats.ObservedAtStart > stats.ExpectedAtStart {
		log.Warn(ctx, "start position holds games from earlier runs",
			logger.Uint64("observed", stats.ObservedAtStart),
			logger.Uint64("expected", stats.ExpectedAtStart))
	}
	log.Info(ctx, "index verified", logger.Uint64("games", stats.ObservedAtStart))
	return nil
}
