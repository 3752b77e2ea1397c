package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/stylist/internal/adapters/http/api"
	"github.com/okian/stylist/internal/adapters/http/swagger"
	app "github.com/okian/stylist/internal/app"
	"github.com/okian/stylist/internal/config"
	"github.com/okian/stylist/pkg/logger"
	"github.com/okian/stylist/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(metricsOptions(cfg)...)

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithEnabled(cfg.MetricsEnabled),
		metrics.WithNames(cfg.MetricsNamespace, cfg.MetricsSubsystem, cfg.MetricsPrefix),
		metrics.WithConstLabels(cfg.MetricsLabels),
		metrics.WithLatencyBuckets(cfg.MetricsBucketsMS),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
	}
}

// run serves until ctx is done, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	metrics.StartSystemCollector(ctx)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		svc.Stop(context.WithoutCancel(ctx))
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var result error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		result = fmt.Errorf("serve: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	svc.Stop(shutdownCtx)

	log.Info(ctx, "server stopped")
	return result
}

func newService(cfg *config.Config, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMaxItems(cfg.MaxWardrobeItems),
		app.WithSessionTTL(cfg.SessionTTL),
		app.WithColorWaitTimeout(cfg.ColorWaitTimeout()),
		app.WithExtractTimeout(cfg.ExtractTimeout()),
		app.WithDefaultColor(cfg.DefaultColor),
		app.WithJPEGQuality(cfg.JPEGQuality),
	)
}

func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithLogger(log.Named("api")),
		api.WithUploadRate(cfg.UploadRatePerSec, cfg.UploadBurst),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
	).Register(ctx, mux)
	return mux
}
