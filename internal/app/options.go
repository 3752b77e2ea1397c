package service

import (
	"time"

	"github.com/okian/stylist/internal/adapters/extractor"
	"github.com/okian/stylist/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of extraction workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the extraction queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many upload keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxItems sets the wardrobe cap per session.
func WithMaxItems(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

// WithSessionTTL sets how long an idle session lives. Zero keeps sessions forever.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithColorWaitTimeout bounds how long outfit generation waits for pending colours.
func WithColorWaitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.colorWait = d
		}
	}
}

// WithDefaultColor sets the neutral colour used for failed or pending extractions.
func WithDefaultColor(hex string) Option {
	return func(s *Service) {
		if hex != "" {
			s.defaultColor = hex
		}
	}
}

// WithJPEGQuality sets the preview encoding quality.
func WithJPEGQuality(q int) Option {
	return func(s *Service) {
		if q >= 1 && q <= 100 {
			s.jpegQuality = q
		}
	}
}

// WithExtractor replaces the k-means colour extractor.
func WithExtractor(ex extractor.Extractor) Option {
	return func(s *Service) {
		if ex != nil {
			s.extractor = ex
		}
	}
}

// WithExtractTimeout bounds a single colour extraction.
func WithExtractTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.extractTimeout = d
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
