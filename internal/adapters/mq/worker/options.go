package worker

import (
	"time"

	"github.com/okian/stylist/internal/domain/palette"
	"github.com/okian/stylist/pkg/logger"
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

// WithDefaultColor sets the colour stored when extraction fails.
func WithDefaultColor(hex string) Option {
	return func(w *InMemoryWorker) {
		if norm, err := palette.Normalize(hex); err == nil {
			w.defaultColor = norm
		}
	}
}

// WithExtractTimeout bounds a single extraction.
func WithExtractTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.extractTimeout = d
		}
	}
}

// WithResultHook is called after every extraction, reporting whether the
// default colour was substituted.
func WithResultHook(fn func(fallback bool)) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.onResult = fn
		}
	}
}

func withBusyHook(fn func(int)) Option {
	return func(w *InMemoryWorker) { w.onBusy = fn }
}
