package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_SensorGauges(t *testing.T) {
	m := New()

	m.SetRiverLevel("River Thames at Windsor", 1.25)
	m.SetTypicalHigh("River Thames at Windsor", 3.45)
	m.SetRecordMax("River Thames at Windsor", 4.87)
	m.SetRainfall("53107", "ST6567", 5.2)

	if got := testutil.ToFloat64(m.riverLevel.WithLabelValues("River Thames at Windsor")); got != 1.25 {
		t.Errorf("river level = %v, want 1.25", got)
	}
	if got := testutil.ToFloat64(m.typicalHigh.WithLabelValues("River Thames at Windsor")); got != 3.45 {
		t.Errorf("typical high = %v, want 3.45", got)
	}
	if got := testutil.ToFloat64(m.recordMax.WithLabelValues("River Thames at Windsor")); got != 4.87 {
		t.Errorf("record max = %v, want 4.87", got)
	}
	if got := testutil.ToFloat64(m.rainfall.WithLabelValues("53107", "ST6567")); got != 5.2 {
		t.Errorf("rainfall = %v, want 5.2", got)
	}
}

func TestMetrics_GaugeOverwrite(t *testing.T) {
	m := New()

	m.SetRiverLevel("station", 1.0)
	m.SetRiverLevel("station", 2.5)

	if got := testutil.ToFloat64(m.riverLevel.WithLabelValues("station")); got != 2.5 {
		t.Errorf("river level = %v, want 2.5 (later value supersedes)", got)
	}
}

func TestMetrics_APICounters(t *testing.T) {
	m := New()
	at := time.Unix(1700000000, 0)

	m.IncSuccess("river_measure", at)
	m.IncSuccess("river_measure", at.Add(time.Minute))
	m.IncFailure("rain_measure")

	if got := testutil.ToFloat64(m.apiSuccesses.WithLabelValues("river_measure")); got != 2 {
		t.Errorf("successes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.apiFailures.WithLabelValues("rain_measure")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess.WithLabelValues("river_measure")); got != 1700000060 {
		t.Errorf("last success = %v, want 1700000060", got)
	}
}

func TestMetrics_InitCounters(t *testing.T) {
	m := New()

	m.IncInit("river_station", true)
	m.IncInit("rain_station", false)

	if got := testutil.ToFloat64(m.initSuccess.WithLabelValues("river_station")); got != 1 {
		t.Errorf("init successes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.initFailure.WithLabelValues("rain_station")); got != 1 {
		t.Errorf("init failures = %v, want 1", got)
	}
}

func TestMetrics_DegradedFlag(t *testing.T) {
	m := New()

	if got := testutil.ToFloat64(m.degraded); got != 0 {
		t.Errorf("degraded = %v at startup, want 0", got)
	}

	m.SetDegraded(true)
	if got := testutil.ToFloat64(m.degraded); got != 1 {
		t.Errorf("degraded = %v, want 1", got)
	}

	m.SetDegraded(false)
	if got := testutil.ToFloat64(m.degraded); got != 0 {
		t.Errorf("degraded = %v, want 0", got)
	}
}

func TestMetrics_HandlerExposition(t *testing.T) {
	m := New()
	m.SetRiverLevel("Thames at Kingston", 1.23)
	m.SetDegraded(false)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "riverlevel_river_level_meters") {
		t.Error("exposition missing river level gauge")
	}
	if !strings.Contains(body, `station="Thames at Kingston"`) {
		t.Error("exposition missing station label")
	}
	if !strings.Contains(body, "riverlevel_degraded_mode 0") {
		t.Error("exposition missing degraded mode gauge")
	}
}

// Two consecutive scrapes with no intervening updates must serve identical
// payloads.
func TestMetrics_HandlerIdempotent(t *testing.T) {
	m := New()
	m.SetRiverLevel("station", 1.5)
	m.SetRainfall("53107", "ST6567", 0)

	get := func() string {
		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		return rec.Body.String()
	}

	first := get()
	second := get()
	if first != second {
		t.Error("consecutive scrapes differ without intervening updates")
	}
}
