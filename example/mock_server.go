package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// StartMockFloodAPI serves the four flood-monitoring endpoints with slowly
// drifting readings, so the exporter can be demoed without hitting the real
// Environment Agency API.
func StartMockFloodAPI(addr string) {
	var mu sync.Mutex
	level := 1.2
	rainfall := 0.0

	drift := func() {
		mu.Lock()
		defer mu.Unlock()
		level += (rand.Float64() - 0.5) * 0.05
		if rand.Float64() < 0.3 {
			rainfall = rand.Float64() * 2
		} else {
			rainfall = 0
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/flood-monitoring/id/measures/river", func(w http.ResponseWriter, r *http.Request) {
		drift()
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"items": {"latestReading": {"value": %.3f, "dateTime": %q}}}`,
			level, time.Now().UTC().Format(time.RFC3339))
	})
	mux.HandleFunc("/flood-monitoring/id/stations/river", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": {"label": "Mockford at Demo Bridge", "stageScale": {"typicalRangeHigh": 2.1, "maxOnRecord": {"value": 3.4, "dateTime": "2014-02-11T09:00:00Z"}}}}`)
	})
	mux.HandleFunc("/flood-monitoring/id/measures/rain", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"items": {"latestReading": {"value": %.1f}}}`, rainfall)
	})
	mux.HandleFunc("/flood-monitoring/id/stations/rain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": {"stationReference": "9001", "gridReference": "SK 123 456"}}`)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("mock flood API stopped", "error", err)
		}
	}()
}
