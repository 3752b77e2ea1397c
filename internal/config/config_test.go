package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/stylist/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 256)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxWardrobeItems, convey.ShouldEqual, 5)
			convey.So(cfg.SessionTTL, convey.ShouldEqual, time.Hour)
			convey.So(cfg.DefaultColor, convey.ShouldEqual, "#cccccc")
			convey.So(cfg.JPEGQuality, convey.ShouldEqual, 92)
			convey.So(cfg.ColorWaitTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.ExtractTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "stylist")
			convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MetricsBucketsMS, convey.ShouldBeEmpty)
		})

		convey.Convey("Then the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given an invalid config", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = ""
		cfg.JPEGQuality = 101
		cfg.DefaultColor = "grey"
		cfg.LogFormat = "xml"
		cfg.MetricsBucketsMS = []float64{10, 5}
		cfg.MetricsRefreshMS = 0

		convey.Convey("Then every problem should be reported", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			convey.So(err.Error(), convey.ShouldContainSubstring, "jpeg_quality 101")
			convey.So(err.Error(), convey.ShouldContainSubstring, "default_color")
			convey.So(err.Error(), convey.ShouldContainSubstring, "log_format")
			convey.So(err.Error(), convey.ShouldContainSubstring, "metrics_buckets_ms")
			convey.So(err.Error(), convey.ShouldContainSubstring, "metrics_refresh_ms 0")
		})
	})

	convey.Convey("Given a disabled upload limiter", t, func() {
		cfg := config.New(context.Background())
		cfg.UploadRatePerSec = 0
		cfg.UploadBurst = 0

		convey.Convey("Then the burst is not required", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given sessions that never expire", t, func() {
		cfg := config.New(context.Background())
		cfg.SessionTTL = 0
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		cfg.SessionTTL = -time.Second
		convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}
