package riverlevel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"floodwatch/riverlevel/config"
	"floodwatch/riverlevel/internal/metrics"
	"floodwatch/riverlevel/internal/poller"
	"floodwatch/riverlevel/internal/server"
	"floodwatch/riverlevel/internal/store"
)

// Exporter polls the configured flood-monitoring endpoints and serves the
// resulting Prometheus metrics and health report over HTTP.
type Exporter struct {
	cfg    *config.Config
	logger *slog.Logger
	policy poller.Policy
}

// New validates cfg, applies options, and returns an Exporter ready to
// Start.
func New(cfg *config.Config, opts ...Option) (*Exporter, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ec := &exporterConfig{}
	for _, opt := range opts {
		if err := opt(ec); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	logger := ec.logger
	if logger == nil {
		logger = slog.Default()
	}

	policy := poller.DefaultPolicy()
	if ec.maxAttempts > 0 {
		policy = poller.Policy{
			MaxAttempts:    ec.maxAttempts,
			InitialBackoff: ec.initialBackoff,
			MaxBackoff:     ec.maxBackoff,
		}
	}

	return &Exporter{cfg: cfg, logger: logger, policy: policy}, nil
}

// Start binds both HTTP listeners, begins polling, and blocks until ctx is
// cancelled. If either port cannot be bound the error is returned
// immediately and no polling starts.
func (e *Exporter) Start(ctx context.Context) error {
	for _, w := range e.cfg.Warnings() {
		e.logger.Warn(w)
	}
	e.logger.Info("riverlevel exporter starting",
		"metrics_port", e.cfg.MetricsPort,
		"health_port", e.cfg.HealthPort,
		"poll_interval", e.cfg.PollInterval.Duration().String(),
		"river_measure_url", config.SanitizeURL(e.cfg.RiverMeasureURL),
		"river_station_url", config.SanitizeURL(e.cfg.RiverStationURL),
		"rain_measure_url", config.SanitizeURL(e.cfg.RainMeasureURL),
		"rain_station_url", config.SanitizeURL(e.cfg.RainStationURL),
	)

	m := metrics.New()
	table := store.NewTable(
		store.EndpointRiverMeasure,
		store.EndpointRiverStation,
		store.EndpointRainMeasure,
		store.EndpointRainStation,
	)
	client := poller.NewClient(e.policy, e.cfg.RequestTimeout.Duration(), m, e.logger)
	defer client.Close()

	// Bind both listeners before the first poll so misconfiguration
	// surfaces as a startup error, not a half-running process.
	metricsServer := server.New("metrics", e.cfg.MetricsPort, server.MetricsMux(m.Handler()), e.logger)
	if err := metricsServer.Start(ctx); err != nil {
		return fmt.Errorf("starting metrics server: %w", err)
	}

	health := server.NewHealthHandler(table, e.logger)
	healthServer := server.New("health", e.cfg.HealthPort, health.Mux(), e.logger)
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("starting health server: %w", err)
	}

	mon := newMonitor(e.cfg, client, m, table, e.logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		mon.run(ctx)
	}()

	<-ctx.Done()
	wg.Wait()

	e.logger.Info("riverlevel exporter stopped")
	return nil
}
