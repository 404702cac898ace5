package worker

import (
	"sync/atomic"

	"github.com/okian/dengue/pkg/logger"
)

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithCompletion registers a callback invoked after every request.
func WithCompletion(fn CompletionFunc) Option {
	return func(w *Worker) {
		w.onDone = fn
	}
}

func withBusyCounter(c *atomic.Int64) Option {
	return func(w *Worker) {
		w.busy = c
	}
}
