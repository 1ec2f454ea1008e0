package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/cleanup"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/config"
	"github.com/therealutkarshpriyadarshi/yt2mp3/internal/logging"
)

// The cleanup worker sweeps a download directory shared by several API
// instances. Sweeps are serialized across processes by the sweep lock.
func main() {
	var configPath string
	var once bool

	cmd := &cobra.Command{
		Use:          "yt2mp3-worker",
		Short:        "Remove stale downloads from the shared download directory",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, once)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().BoolVar(&once, "once", false, "Sweep once and exit")

	// Handle shutdown gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, once bool) error {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	sweeper := cleanup.NewSweeper(cfg.Download.Dir, cfg.Cleanup.MaxAge, logger)

	if once {
		removed, err := sweeper.Sweep()
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		logger.WithField("removed", removed).Infof("Sweep of %s finished", cfg.Download.Dir)
		return nil
	}

	if cfg.Cleanup.SweepInterval <= 0 {
		return fmt.Errorf("cleanup.sweepInterval must be positive, got %v", cfg.Cleanup.SweepInterval)
	}

	logger.WithFields(map[string]interface{}{
		"dir":      cfg.Download.Dir,
		"interval": cfg.Cleanup.SweepInterval.String(),
		"max_age":  cfg.Cleanup.MaxAge.String(),
	}).Info("Sweeping download directory")
	sweeper.Run(ctx, cfg.Cleanup.SweepInterval)
	logger.Info("Worker stopped")
	return nil
}
