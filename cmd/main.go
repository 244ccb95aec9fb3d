package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/hoopdex/internal/adapters/http/api"
	"github.com/okian/hoopdex/internal/adapters/http/swagger"
	"github.com/okian/hoopdex/internal/adapters/snapshot"
	"github.com/okian/hoopdex/internal/adapters/watch"
	app "github.com/okian/hoopdex/internal/app"
	"github.com/okian/hoopdex/internal/config"
	"github.com/okian/hoopdex/internal/domain/similarity"
	"github.com/okian/hoopdex/internal/ingest"
	"github.com/okian/hoopdex/pkg/logger"
	"github.com/okian/hoopdex/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Build the service options from configuration
	opts := []app.Option{
		app.WithLogger(loggerInstance),
		app.WithSourceDir(cfg.SourceDir),
		app.WithIngester(ingest.New(
			ingest.WithWorkers(cfg.IngestWorkers),
			ingest.WithLogger(loggerInstance.Named("ingest")),
		)),
		app.WithQueryTimeout(cfg.QueryTimeout),
		app.WithMinSharedDims(cfg.MinSharedDims),
		app.WithDeltaThresholds(similarity.Thresholds{
			Negligible: cfg.DeltaNegligible,
			Minor:      cfg.DeltaMinor,
		}),
		app.WithPageLimits(cfg.DefaultPageSize, cfg.MaxPageSize),
		app.WithMaxSimilar(cfg.MaxSimilar),
	}

	// Optional content-addressed generation cache
	if cfg.SnapshotPath != "" {
		store, err := snapshot.Open(cfg.SnapshotPath)
		if err != nil {
			os.Stderr.WriteString("failed to open snapshot store: " + err.Error() + "\n")
			return
		}
		opts = append(opts, app.WithSnapshots(store, cfg.SnapshotMaxAge))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = svc.Stop(context.Background())
	}()

	// Reload automatically when the source directory changes
	if cfg.WatchSources {
		reload := watch.ReloaderFunc(func(ctx context.Context) error {
			_, err := svc.Reload(ctx)
			return err
		})
		watcher, err := watch.New(cfg.SourceDir, reload,
			watch.WithDebounce(cfg.WatchDebounce),
			watch.WithLogger(loggerInstance.Named("watch")),
		)
		if err != nil {
			loggerInstance.Warn(ctx, "source watching disabled", logger.Error(err))
		} else {
			defer watcher.Close()
			go func() {
				_ = watcher.Run(ctx)
			}()
		}
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API documentation under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
