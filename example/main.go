package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"floodwatch/riverlevel"
	"floodwatch/riverlevel/config"
)

func main() {
	// start mock flood-monitoring API (see mock_server.go)
	StartMockFloodAPI(":9999")
	time.Sleep(100 * time.Millisecond)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg := config.Default()
	cfg.RiverMeasureURL = "http://localhost:9999/flood-monitoring/id/measures/river"
	cfg.RiverStationURL = "http://localhost:9999/flood-monitoring/id/stations/river"
	cfg.RainMeasureURL = "http://localhost:9999/flood-monitoring/id/measures/rain"
	cfg.RainStationURL = "http://localhost:9999/flood-monitoring/id/stations/rain"
	cfg.PollInterval = config.Duration(5 * time.Second)

	exporter, err := riverlevel.New(cfg,
		riverlevel.WithLogger(logger),
		riverlevel.WithRetry(3, 500*time.Millisecond, 4*time.Second),
	)
	if err != nil {
		slog.Error("failed to create exporter", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("demo exporter running",
		"metrics", "http://localhost:8897/metrics",
		"health", "http://localhost:8898/health",
	)
	if err := exporter.Start(ctx); err != nil {
		slog.Error("exporter failed", "error", err)
		os.Exit(1)
	}
}
