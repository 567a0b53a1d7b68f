package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/explorer/internal/gamegen"
)

// Default configuration constants.
const (
	defaultNumGames     = 1000
	defaultDuplicatePct = 5
	defaultMinPlies     = 10
	defaultMaxPlies     = 80
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultSettle       = time.Minute
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numGames = flag.Int("games", defaultNumGames, "Number of distinct games to generate")
		dupPct   = flag.Int("dup", defaultDuplicatePct, "Percent of games submitted twice")
		minPlies = flag.Int("min-plies", defaultMinPlies, "Shortest game in plies")
		maxPlies = flag.Int("max-plies", defaultMaxPlies, "Longest game in plies")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle   = flag.Duration("settle", defaultSettle, "How long to wait for indexing")
		output   = flag.String("output", "", "Write generated games to this NDJSON file")
		logFile  = flag.String("log", "", "Tee logs into this file")
		verbose  = flag.Bool("verbose", false, "Log submission progress")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		gamegen.ShowHelp(os.Stdout)
		return
	}

	closeLog, err := gamegen.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &gamegen.Config{
		BaseURL:       *baseURL,
		NumGames:      *numGames,
		DuplicatePct:  *dupPct,
		MinPlies:      *minPlies,
		MaxPlies:      *maxPlies,
		Workers:       *workers,
		Timeout:       *timeout,
		SettleTimeout: *settle,
		OutputFile:    *output,
		Verbose:       *verbose,
	}

	if _, err := gamegen.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
