package gamegen

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/explorer/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the global logger on stdout, teeing into logFile
// when it is set. The returned function closes the file.
func SetupLogging(logFile string) (func() error, error) {
	if logFile == "" {
		if err := logger.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return func() error { return nil }, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file.Close, nil
}

// ShowHelp prints usage information for the generator.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Opening Explorer Game Generator
==============================

Plays random legal games, submits them to a running explorer service and
checks that the start position accounts for every accepted game.

Usage:
  go run ./cmd/gen-games [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -games int         Number of distinct games (default 1000)
  -dup int           Percent of games submitted twice (default 5)
  -min-plies int     Shortest game in plies (default 10)
  -max-plies int     Longest game in plies (default 80)
  -workers int       Concurrent submitters (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -settle duration   How long to wait for indexing (default 1m)
  -output string     Write the generated games as NDJSON
  -log string        Tee logs into this file
  -verbose           Log submission progress
  -help              Show this help message

Examples:
  go run ./cmd/gen-games -games 50000 -workers 16
  go run ./cmd/gen-games -output games.ndjson -verbose
`)
}
