package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/runner"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for the final particle snapshot")
	restore := flag.String("restore", "", "Snapshot file to resume particles from")
	seed := flag.Int64("seed", 0, "Scene RNG seed (0 = use config)")
	maxSteps := flag.Int64("max-steps", 0, "Stop after N steps (0 = until interrupted)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	workers := flag.Int("workers", 0, "Solver workers (0 = use config)")

	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		slog.Error("invalid log level", "level", *logLevel, "error", err)
		os.Exit(2)
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	r, err := runner.New(cfg, runner.Options{
		Seed:        *seed,
		Workers:     *workers,
		MaxSteps:    *maxSteps,
		OutputDir:   *outputDir,
		SnapshotDir: *snapshotDir,
		RestorePath: *restore,
		Logger:      logger,
	})
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := r.Run(ctx)
	stop()

	if err := r.Close(); err != nil {
		slog.Error("failed to close run", "error", err)
	}
	if runErr != nil {
		slog.Error("simulation failed", "error", runErr)
		os.Exit(1)
	}
}
