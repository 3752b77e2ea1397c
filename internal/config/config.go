// Package config defines service configuration and how it is loaded.
//
// Values are layered: defaults from New, then an optional YAML file named by
// STYLIST_CONFIG, then STYLIST_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/stylist/internal/domain/palette"
	"github.com/okian/stylist/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// QueueSize bounds the colour extraction queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of extraction workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many upload ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// ExtractTimeoutMS bounds a single colour extraction.
	ExtractTimeoutMS int `koanf:"extract_timeout_ms"`

	// MaxWardrobeItems caps the wardrobe of one session.
	MaxWardrobeItems int `koanf:"max_wardrobe_items"`
	// SessionTTL evicts idle sessions. Zero keeps them forever.
	SessionTTL time.Duration `koanf:"session_ttl"`
	// ColorWaitTimeoutMS bounds how long outfit generation waits for pending colours.
	ColorWaitTimeoutMS int `koanf:"color_wait_timeout_ms"`
	// DefaultColor stands in for colours that are pending or could not be extracted.
	DefaultColor string `koanf:"default_color"`
	// JPEGQuality is the preview encoding quality, 1-100.
	JPEGQuality int `koanf:"jpeg_quality"`

	// MaxUploadBytes caps an upload request body.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
	// UploadRatePerSec and UploadBurst shape the upload token bucket. A zero rate disables it.
	UploadRatePerSec float64 `koanf:"upload_rate_per_sec"`
	UploadBurst      int     `koanf:"upload_burst"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsNamespace, MetricsSubsystem and MetricsPrefix build metric names.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	MetricsPrefix    string `koanf:"metrics_prefix"`
	// MetricsLabels are constant labels attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
	// MetricsBucketsMS overrides the latency histogram buckets. Empty keeps the built-in set.
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`
	// MetricsRefreshMS is the runtime stats sampling interval.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		ShutdownTimeoutMS:  10_000,
		QueueSize:          256,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         10_000,
		ExtractTimeoutMS:   10_000,
		MaxWardrobeItems:   5,
		SessionTTL:         time.Hour,
		ColorWaitTimeoutMS: 5_000,
		DefaultColor:       palette.DefaultColor,
		JPEGQuality:        92,
		MaxUploadBytes:     10 << 20,
		UploadRatePerSec:   5,
		UploadBurst:        10,
		MetricsEnabled:     true,
		MetricsNamespace:   "stylist",
		MetricsSubsystem:   "outfits",
		MetricsRefreshMS:   10_000,
	}
}

// ColorWaitTimeout returns ColorWaitTimeoutMS as a duration.
func (c *Config) ColorWaitTimeout() time.Duration {
	return time.Duration(c.ColorWaitTimeoutMS) * time.Millisecond
}

// ExtractTimeout returns ExtractTimeoutMS as a duration.
func (c *Config) ExtractTimeout() time.Duration {
	return time.Duration(c.ExtractTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// Validate reports every invalid field. The error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Addr != "", "addr must not be empty")
	check(c.LogFormat == "text" || c.LogFormat == "json", "log_format %q: want text or json", c.LogFormat)
	check(c.QueueSize > 0, "queue_size %d: must be positive", c.QueueSize)
	check(c.WorkerCount > 0, "worker_count %d: must be positive", c.WorkerCount)
	check(c.DedupeSize > 0, "dedupe_size %d: must be positive", c.DedupeSize)
	check(c.ExtractTimeoutMS > 0, "extract_timeout_ms %d: must be positive", c.ExtractTimeoutMS)
	check(c.MaxWardrobeItems > 0, "max_wardrobe_items %d: must be positive", c.MaxWardrobeItems)
	check(c.SessionTTL >= 0, "session_ttl %s: must not be negative", c.SessionTTL)
	check(c.ColorWaitTimeoutMS > 0, "color_wait_timeout_ms %d: must be positive", c.ColorWaitTimeoutMS)
	check(c.JPEGQuality >= 1 && c.JPEGQuality <= 100, "jpeg_quality %d: want 1-100", c.JPEGQuality)
	check(c.MaxUploadBytes > 0, "max_upload_bytes %d: must be positive", c.MaxUploadBytes)
	check(c.UploadRatePerSec >= 0, "upload_rate_per_sec %g: must not be negative", c.UploadRatePerSec)
	check(c.UploadRatePerSec == 0 || c.UploadBurst > 0, "upload_burst %d: must be positive", c.UploadBurst)
	check(c.ShutdownTimeoutMS > 0, "shutdown_timeout_ms %d: must be positive", c.ShutdownTimeoutMS)
	check(c.MetricsRefreshMS > 0, "metrics_refresh_ms %d: must be positive", c.MetricsRefreshMS)
	check(len(c.MetricsBucketsMS) == 0 || metrics.ValidBuckets(c.MetricsBucketsMS),
		"metrics_buckets_ms %v: want positive, strictly increasing", c.MetricsBucketsMS)
	if _, err := palette.Normalize(c.DefaultColor); err != nil {
		errs = append(errs, fmt.Errorf("default_color: %w", err))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
