package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/cleanup"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/config"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/downloader"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/logging"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/metrics"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/middleware"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/preflight"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/stats"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/tracing"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/validator"
	"github.com/therealutkarshpriyadarshi/yt2mp3/pkg/models"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTimeout     = 30 * time.Minute
)

func runServer(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.UsesDefaultSecret() {
		logger.Warn("Session secret is the built-in default; set SECRET_KEY in production")
	}

	for _, s := range preflight.Missing(preflight.CheckBinaries(preflight.Requirements(cfg.Download))) {
		logger.Warnf("%s not available (%s); downloads will fail until it is installed", s.Name, s.Detail)
	}

	closer, err := tracing.InitTracer(cfg.Tracing.Enabled, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := stats.New(cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, keeping stats in memory")
		store = stats.NewMemoryStore()
	}
	defer store.Close()

	if err := os.MkdirAll(cfg.Download.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	deleter := cleanup.NewDeleter(cfg.Cleanup.MaxAttempts, cfg.Cleanup.InitialDelay, logger)
	scheduler := cleanup.NewScheduler(deleter, cfg.Download.Dir, cfg.Cleanup.Workers, cfg.Cleanup.QueueSize)
	scheduler.OnFailure = func(string) {
		if err := store.IncrementStat(context.Background(), models.StatCleanupFailures); err != nil {
			logger.WithError(err).Warn("Failed to record cleanup failure")
		}
	}

	if cfg.Cleanup.SweepInterval > 0 {
		sweeper := cleanup.NewSweeper(cfg.Download.Dir, cfg.Cleanup.MaxAge, logger)
		go sweeper.Run(bgCtx, cfg.Cleanup.SweepInterval)
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go rateLimiter.Cleanup(bgCtx, limiterCleanupInterval, limiterIdleTimeout)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, downloadDirReady(cfg.Download.Dir), logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
	}

	extractor := downloader.NewYtdlpExtractor(cfg.Download.YtdlpPath, cfg.Download.FFmpegPath, cfg.Download.PlayerClients)

	api := &API{
		cfg:         cfg,
		validator:   validator.NewFromHosts(cfg.Validator.ShortLinkHosts, cfg.Validator.VideoHosts),
		downloader:  downloader.NewService(cfg.Download, extractor, logger),
		scheduler:   scheduler,
		stats:       store,
		rateLimiter: rateLimiter,
		logger:      logger,
	}

	router, err := setupRouter(api)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info("Server stopped")
	return errors.Join(errs...)
}

// downloadDirReady fails while the download directory is missing or not a directory
func downloadDirReady(dir string) metrics.ReadyFunc {
	return func() error {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("download directory unavailable: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("download path %s is not a directory", dir)
		}
		return nil
	}
}
