package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "riverlevel"

// Metrics holds every Prometheus instrument the exporter publishes.
//
// The zero value is not usable; create instances with [New]. All methods are
// safe for concurrent use (the underlying prometheus types handle their own
// synchronization).
type Metrics struct {
	registry *prometheus.Registry

	riverLevel   *prometheus.GaugeVec
	typicalHigh  *prometheus.GaugeVec
	recordMax    *prometheus.GaugeVec
	rainfall     *prometheus.GaugeVec
	apiSuccesses *prometheus.CounterVec
	apiFailures  *prometheus.CounterVec
	apiDuration  *prometheus.HistogramVec
	lastSuccess  *prometheus.GaugeVec
	initSuccess  *prometheus.CounterVec
	initFailure  *prometheus.CounterVec
	startup      prometheus.Histogram
	degraded     prometheus.Gauge
}

// New creates a Metrics instance with all instruments registered on a fresh
// registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		riverLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "river_level_meters",
			Help:      "Current river level reading in metres above stage datum.",
		}, []string{"station"}),

		typicalHigh: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "river_typical_level_meters",
			Help:      "Typical range high threshold for the station in metres.",
		}, []string{"station"}),

		recordMax: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "river_record_max_meters",
			Help:      "Highest river level on record for the station in metres.",
		}, []string{"station"}),

		rainfall: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rainfall_millimeters",
			Help:      "Latest rainfall reading in millimetres.",
		}, []string{"station_id", "grid_reference"}),

		apiSuccesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_successes_total",
			Help:      "Successful flood-monitoring API requests by endpoint.",
		}, []string{"endpoint"}),

		apiFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_failures_total",
			Help:      "Failed flood-monitoring API request attempts by endpoint.",
		}, []string{"endpoint"}),

		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of flood-monitoring API request attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful fetch by endpoint.",
		}, []string{"endpoint"}),

		initSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_init_successes_total",
			Help:      "Successful station metadata initializations.",
		}, []string{"station"}),

		initFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_init_failures_total",
			Help:      "Failed station metadata initializations.",
		}, []string{"station"}),

		startup: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "startup_duration_seconds",
			Help:      "Time spent initializing station metadata at startup.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),

		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "degraded_mode",
			Help:      "1 when at least one configured endpoint is currently failing, 0 otherwise.",
		}),
	}

	registry.MustRegister(
		m.riverLevel, m.typicalHigh, m.recordMax, m.rainfall,
		m.apiSuccesses, m.apiFailures, m.apiDuration, m.lastSuccess,
		m.initSuccess, m.initFailure, m.startup, m.degraded,
	)

	return m
}

// Handler returns the exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// SetRiverLevel publishes the current river level for a station.
func (m *Metrics) SetRiverLevel(station string, v float64) {
	m.riverLevel.WithLabelValues(station).Set(v)
}

// SetTypicalHigh publishes the station's typical-range-high threshold.
func (m *Metrics) SetTypicalHigh(station string, v float64) {
	m.typicalHigh.WithLabelValues(station).Set(v)
}

// SetRecordMax publishes the station's highest level on record.
func (m *Metrics) SetRecordMax(station string, v float64) {
	m.recordMax.WithLabelValues(station).Set(v)
}

// SetRainfall publishes the latest rainfall reading.
func (m *Metrics) SetRainfall(stationID, gridRef string, v float64) {
	m.rainfall.WithLabelValues(stationID, gridRef).Set(v)
}

// ObserveRequest records the duration of one fetch attempt.
func (m *Metrics) ObserveRequest(endpoint string, d time.Duration) {
	m.apiDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncSuccess counts a successful fetch and stamps its completion time.
func (m *Metrics) IncSuccess(endpoint string, at time.Time) {
	m.apiSuccesses.WithLabelValues(endpoint).Inc()
	m.lastSuccess.WithLabelValues(endpoint).Set(float64(at.Unix()))
}

// IncFailure counts one failed fetch attempt.
func (m *Metrics) IncFailure(endpoint string) {
	m.apiFailures.WithLabelValues(endpoint).Inc()
}

// IncInit counts a station metadata initialization outcome.
func (m *Metrics) IncInit(station string, ok bool) {
	if ok {
		m.initSuccess.WithLabelValues(station).Inc()
		return
	}
	m.initFailure.WithLabelValues(station).Inc()
}

// ObserveStartup records how long startup initialization took.
func (m *Metrics) ObserveStartup(d time.Duration) {
	m.startup.Observe(d.Seconds())
}

// SetDegraded publishes whether degraded mode is active.
func (m *Metrics) SetDegraded(active bool) {
	if active {
		m.degraded.Set(1)
		return
	}
	m.degraded.Set(0)
}
