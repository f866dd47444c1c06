package riverlevel

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"floodwatch/riverlevel/config"
	"floodwatch/riverlevel/internal/metrics"
	"floodwatch/riverlevel/internal/poller"
	"floodwatch/riverlevel/internal/store"
)

// monitor owns the initialize-then-poll lifecycle: fetch station metadata
// once to fix the metric labels, then poll the four endpoints forever,
// publishing readings and availability.
type monitor struct {
	cfg     *config.Config
	client  *poller.Client
	metrics *metrics.Metrics
	table   *store.Table
	logger  *slog.Logger

	interval      time.Duration
	errorInterval time.Duration

	// metric labels, derived once during initialization and never
	// re-derived for the lifetime of the process
	riverStation  string
	rainStationID string
	rainGridRef   string
}

func newMonitor(cfg *config.Config, client *poller.Client, m *metrics.Metrics, table *store.Table, logger *slog.Logger) *monitor {
	return &monitor{
		cfg:           cfg,
		client:        client,
		metrics:       m,
		table:         table,
		logger:        logger,
		interval:      cfg.PollInterval.Duration(),
		errorInterval: cfg.ErrorRetryInterval.Duration(),
		riverStation:  UnknownStation,
		rainStationID: UnknownReference,
		rainGridRef:   UnknownReference,
	}
}

// run blocks until ctx is cancelled. Nothing inside the loop terminates the
// process: per-endpoint failures degrade gracefully, and unexpected panics
// are caught at the cycle boundary, after which polling resumes with a
// shortened delay.
func (m *monitor) run(ctx context.Context) {
	m.initialize(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		delay := m.interval
		if err := m.safeCycle(ctx); err != nil {
			m.logger.Error("poll cycle failed unexpectedly", "error", err)
			delay = m.errorInterval
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// initialize fetches station metadata once and fixes the metric labels. On
// failure the fallback labels stand for the rest of the run; metadata is
// never retried mid-loop.
func (m *monitor) initialize(ctx context.Context) {
	start := time.Now()

	riverDoc, riverOK := m.fetchStation(ctx, store.EndpointRiverStation, m.cfg.RiverStationURL)
	m.riverStation = ExtractStationName(riverDoc)
	m.table.SetInitialized(store.EndpointRiverStation, riverOK)
	m.metrics.IncInit(store.EndpointRiverStation, riverOK)

	rainDoc, rainOK := m.fetchStation(ctx, store.EndpointRainStation, m.cfg.RainStationURL)
	m.rainStationID = ExtractStationID(rainDoc)
	m.rainGridRef = NormalizeGridReference(ExtractGridReference(rainDoc))
	m.table.SetInitialized(store.EndpointRainStation, rainOK)
	m.metrics.IncInit(store.EndpointRainStation, rainOK)

	m.metrics.ObserveStartup(time.Since(start))

	if !riverOK || !rainOK {
		m.logger.Warn("station metadata unavailable, continuing with fallback labels",
			"river_station_initialized", riverOK,
			"rain_station_initialized", rainOK,
		)
	}
	m.logger.Info("monitoring initialized",
		"river_station", m.riverStation,
		"rain_station_id", m.rainStationID,
		"grid_reference", m.rainGridRef,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// safeCycle runs one poll cycle inside a panic boundary. A panicking cycle
// is logged with a correlation ID and full stack, treated as a total failure
// for this iteration, and must never take the process down.
func (m *monitor) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			m.logger.Error("poll cycle panicked",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("poll cycle panic (correlation_id: %s)", correlationID)
		}
	}()

	m.cycle(ctx)
	return nil
}

// cycle fetches every configured endpoint once. Each endpoint is
// independent: a failure updates the status table and leaves the previously
// published metric values untouched.
func (m *monitor) cycle(ctx context.Context) {
	m.pollRiverMeasure(ctx)
	m.pollRiverStation(ctx)
	m.pollRainMeasure(ctx)
	m.pollRainStation(ctx)

	overall := m.table.Overall()
	m.metrics.SetDegraded(overall != store.Healthy)

	if overall == store.Healthy {
		m.logger.Debug("poll cycle complete", "health", string(overall))
	} else {
		m.logger.Warn("poll cycle complete with failing endpoints", "health", string(overall))
	}
}

func (m *monitor) pollRiverMeasure(ctx context.Context) {
	body, err := m.client.Fetch(ctx, store.EndpointRiverMeasure, m.cfg.RiverMeasureURL)
	if err != nil {
		m.table.RecordFailure(store.EndpointRiverMeasure, poller.Classify(err))
		return
	}
	m.table.RecordSuccess(store.EndpointRiverMeasure, time.Now())

	doc, err := ParseMeasurement(body)
	if err != nil {
		m.logger.Warn("river measurement document malformed",
			"endpoint", store.EndpointRiverMeasure, "error", err)
		return
	}
	if v, ok := ExtractReading(doc); ok {
		m.metrics.SetRiverLevel(m.riverStation, v)
	} else {
		m.logger.Warn("river reading absent, keeping previous value",
			"endpoint", store.EndpointRiverMeasure)
	}
}

func (m *monitor) pollRiverStation(ctx context.Context) {
	body, err := m.client.Fetch(ctx, store.EndpointRiverStation, m.cfg.RiverStationURL)
	if err != nil {
		m.table.RecordFailure(store.EndpointRiverStation, poller.Classify(err))
		return
	}
	m.table.RecordSuccess(store.EndpointRiverStation, time.Now())

	doc, err := ParseStation(body)
	if err != nil {
		m.logger.Warn("river station document malformed",
			"endpoint", store.EndpointRiverStation, "error", err)
		return
	}
	if v, ok := ExtractTypicalHigh(doc); ok {
		m.metrics.SetTypicalHigh(m.riverStation, v)
	}
	if v, ok := ExtractRecordMax(doc); ok {
		m.metrics.SetRecordMax(m.riverStation, v)
	}
}

func (m *monitor) pollRainMeasure(ctx context.Context) {
	body, err := m.client.Fetch(ctx, store.EndpointRainMeasure, m.cfg.RainMeasureURL)
	if err != nil {
		m.table.RecordFailure(store.EndpointRainMeasure, poller.Classify(err))
		return
	}
	m.table.RecordSuccess(store.EndpointRainMeasure, time.Now())

	doc, err := ParseMeasurement(body)
	if err != nil {
		m.logger.Warn("rainfall document malformed",
			"endpoint", store.EndpointRainMeasure, "error", err)
		return
	}
	if v, ok := ExtractReading(doc); ok {
		m.metrics.SetRainfall(m.rainStationID, m.rainGridRef, v)
	} else {
		m.logger.Warn("rainfall reading absent, keeping previous value",
			"endpoint", store.EndpointRainMeasure)
	}
}

// pollRainStation tracks availability only; the rain station labels are
// fixed at initialization.
func (m *monitor) pollRainStation(ctx context.Context) {
	_, err := m.client.Fetch(ctx, store.EndpointRainStation, m.cfg.RainStationURL)
	if err != nil {
		m.table.RecordFailure(store.EndpointRainStation, poller.Classify(err))
		return
	}
	m.table.RecordSuccess(store.EndpointRainStation, time.Now())
}

// fetchStation fetches and decodes a station metadata document. The boolean
// reports whether usable metadata was obtained.
func (m *monitor) fetchStation(ctx context.Context, endpoint, url string) (*StationResponse, bool) {
	body, err := m.client.Fetch(ctx, endpoint, url)
	if err != nil {
		m.table.RecordFailure(endpoint, poller.Classify(err))
		return nil, false
	}
	m.table.RecordSuccess(endpoint, time.Now())

	doc, err := ParseStation(body)
	if err != nil {
		m.logger.Warn("station document malformed", "endpoint", endpoint, "error", err)
		return nil, false
	}
	return doc, true
}
