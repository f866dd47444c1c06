package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"floodwatch/riverlevel/internal/store"
)

// healthResponse is the JSON body served at /health.
type healthResponse struct {
	Status         string          `json:"status"`
	Timestamp      string          `json:"timestamp"`
	APIs           map[string]bool `json:"apis"`
	Initialization map[string]bool `json:"initialization"`
	Metrics        healthMetrics   `json:"metrics"`

	// Failures maps each currently failing endpoint to its failure
	// classification (e.g. "timeout", "http_503"). Omitted when healthy.
	Failures map[string]string `json:"failures,omitempty"`
}

type healthMetrics struct {
	LastSuccessfulRiverUpdate int64 `json:"last_successful_river_update"`
	LastSuccessfulRainUpdate  int64 `json:"last_successful_rain_update"`
}

// HealthHandler serves the liveness/readiness summary derived from the
// endpoint status table. It is purely a read path: it never blocks on or
// triggers a network fetch.
type HealthHandler struct {
	table  *store.Table
	logger *slog.Logger
	now    func() time.Time
}

// NewHealthHandler creates a [HealthHandler] reading from table.
func NewHealthHandler(table *store.Table, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		table:  table,
		logger: logger,
		now:    time.Now,
	}
}

// Mux returns the handler tree for the health listener: /health plus a JSON
// 404 for every other path.
func (h *HealthHandler) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/", h.handleNotFound)
	return mux
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	overall := h.table.Overall()

	riverMeasure, _ := h.table.Get(store.EndpointRiverMeasure)
	rainMeasure, _ := h.table.Get(store.EndpointRainMeasure)

	resp := healthResponse{
		Status:    string(overall),
		Timestamp: h.now().UTC().Format(time.RFC3339),
		APIs: map[string]bool{
			"river_station": riverMeasure.Available,
			"rain_station":  rainMeasure.Available,
		},
		Initialization: map[string]bool{
			"river_station_initialized": h.table.Initialized(store.EndpointRiverStation),
			"rain_station_initialized":  h.table.Initialized(store.EndpointRainStation),
		},
		Metrics: healthMetrics{
			LastSuccessfulRiverUpdate: unixOrZero(riverMeasure.LastSuccess),
			LastSuccessfulRainUpdate:  unixOrZero(rainMeasure.LastSuccess),
		},
	}

	for _, st := range h.table.Snapshot() {
		if !st.Available {
			if resp.Failures == nil {
				resp.Failures = make(map[string]string)
			}
			resp.Failures[st.Name] = st.LastFailure
		}
	}

	status := http.StatusOK
	if overall == store.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode health response", "error", err)
	}
}

func (h *HealthHandler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error": "Not found"}`))
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
