package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrImportRunning = errors.New("import already running for user")
	ErrImportBusy    = errors.New("too many imports running")
	ErrSnapshot      = errors.New("snapshot failed")
)
