package store

import (
	"sync"
	"time"
)

// Logical endpoint names. These label metrics, key the status table, and
// appear in structured logs.
const (
	EndpointRiverMeasure = "river_measure"
	EndpointRiverStation = "river_station"
	EndpointRainMeasure  = "rain_measure"
	EndpointRainStation  = "rain_station"
)

// Health is the aggregate availability state derived from the table.
type Health string

const (
	// Healthy means no endpoint is currently failing.
	Healthy Health = "healthy"

	// Degraded means at least one, but not all, endpoints are failing.
	Degraded Health = "degraded"

	// Unhealthy means every endpoint is currently failing.
	Unhealthy Health = "unhealthy"
)

// EndpointStatus is the last-known state of one configured endpoint.
//
// Available reflects the most recent fetch attempt only; LastSuccess is the
// wall-clock time of the most recent successful fetch (zero if none yet).
type EndpointStatus struct {
	Name                string
	Available           bool
	LastSuccess         time.Time
	LastFailure         string // failure classification, "" if never failed
	ConsecutiveFailures int
}

// Table tracks per-endpoint availability and per-station initialization
// state. It is safe for concurrent use.
type Table struct {
	mu          sync.RWMutex
	statuses    map[string]*EndpointStatus
	order       []string
	initialized map[string]bool
}

// NewTable creates a Table tracking the given endpoint names. Endpoints not
// registered here are ignored by Overall.
func NewTable(endpoints ...string) *Table {
	t := &Table{
		statuses:    make(map[string]*EndpointStatus, len(endpoints)),
		order:       make([]string, 0, len(endpoints)),
		initialized: make(map[string]bool),
	}
	for _, name := range endpoints {
		t.statuses[name] = &EndpointStatus{Name: name, Available: true}
		t.order = append(t.order, name)
	}
	return t
}

// RecordSuccess marks an endpoint's most recent attempt as successful.
func (t *Table) RecordSuccess(name string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.statuses[name]
	if !ok {
		return
	}
	st.Available = true
	st.LastSuccess = at
	st.ConsecutiveFailures = 0
}

// RecordFailure marks an endpoint's most recent attempt as failed, recording
// the terminal failure classification.
func (t *Table) RecordFailure(name, classification string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.statuses[name]
	if !ok {
		return
	}
	st.Available = false
	st.LastFailure = classification
	st.ConsecutiveFailures++
}

// Get returns a copy of one endpoint's status.
func (t *Table) Get(name string) (EndpointStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.statuses[name]
	if !ok {
		return EndpointStatus{}, false
	}
	return *st, true
}

// Snapshot returns copies of every endpoint status in registration order.
func (t *Table) Snapshot() []EndpointStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]EndpointStatus, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.statuses[name])
	}
	return out
}

// SetInitialized records whether a station's metadata fetch succeeded at
// startup. Initialization is attempted once per run and never retried.
func (t *Table) SetInitialized(station string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initialized[station] = ok
}

// Initialized reports whether a station's metadata was fetched successfully.
func (t *Table) Initialized(station string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.initialized[station]
}

// Overall derives the aggregate health across all registered endpoints:
// Unhealthy when every endpoint is currently failing, Degraded when some
// are, Healthy otherwise. An empty table is Healthy.
func (t *Table) Overall() Health {
	t.mu.RLock()
	defer t.mu.RUnlock()

	failing := 0
	for _, st := range t.statuses {
		if !st.Available {
			failing++
		}
	}

	switch {
	case failing == 0:
		return Healthy
	case failing == len(t.statuses):
		return Unhealthy
	default:
		return Degraded
	}
}
