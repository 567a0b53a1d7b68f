// Package worker runs the indexing workers that fold queued games into the store.
package worker

import (
	"github.com/okian/explorer/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithUnrecorder sets who is told to forget games that are still in progress.
func WithUnrecorder(u Unrecorder) Option {
	return func(w *InMemoryWorker) {
		if u != nil {
			w.unrecorder = u
		}
	}
}
