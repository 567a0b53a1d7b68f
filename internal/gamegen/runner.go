package gamegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/explorer/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes a complete generator run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("gamegen")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting game generator",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("games", cfg.NumGames),
		logger.Int("duplicatePct", cfg.DuplicatePct),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("verbose", cfg.Verbose))

	if err := checkServiceHealth(ctx, cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	client := newHTTPClient(cfg.Timeout)
	before, err := FetchPosition(ctx, client, cfg.BaseURL, startFEN)
	if err != nil {
		return stats, fmt.Errorf("baseline query failed: %w", err)
	}

	subs, err := GenerateGames(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("game generation failed: %w", err)
	}

	accepted := SubmitGames(ctx, cfg, subs, stats)
	stats.ExpectedAtStart = before.Total() + accepted

	log.Info(ctx, "waiting for games to be indexed", logger.Uint64("expected", stats.ExpectedAtStart))
	stats.ObservedAtStart, err = WaitForIndexing(ctx, cfg, stats.ExpectedAtStart)
	if err != nil {
		return stats, fmt.Errorf("waiting for index failed: %w", err)
	}
	if err := VerifyResults(ctx, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveGamesToFile(ctx, cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save games to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	resp, err := newHTTPClient(cfg.Timeout).Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The health route serves Prometheus metrics; any 200 is healthy.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// saveGamesToFile writes the distinct generated games as NDJSON, the same
// shape the lichess export API streams.
func saveGamesToFile(ctx context.Context, filename string, subs []Submission) error {
	if len(subs) == 0 {
		return errors.New("no games to save")
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	enc := json.NewEncoder(file)
	for i := range subs {
		if subs[i].Repeat {
			continue
		}
		if err := enc.Encode(subs[i].Game); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to write game %d: %w", i, err)
		}
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	logger.Get().Info(ctx, "games saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, gamesPerSecond float64
	if stats.GamesSubmitted > 0 {
		acceptRate = float64(stats.GamesAccepted) / float64(stats.GamesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		gamesPerSecond = float64(stats.GamesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("gamesGenerated", stats.GamesGenerated),
		logger.Int("gamesIndexable", stats.GamesIndexable),
		logger.Int("gamesSubmitted", stats.GamesSubmitted),
		logger.Int("gamesAccepted", stats.GamesAccepted),
		logger.Int("gamesDuplicate", stats.GamesDuplicate),
		logger.Int("gamesFailed", stats.GamesFailed),
		logger.Uint64("startPositionGames", stats.ObservedAtStart),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("gamesPerSecond", gamesPerSecond))
}
