package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"floodwatch/riverlevel/internal/metrics"
)

func testPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func testClient(attempts int) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(testPolicy(attempts), 2*time.Second, metrics.New(), logger)
}

func TestClient_FetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		_, _ = w.Write([]byte(`{"items":{"latestReading":{"value":1.25}}}`))
	}))
	defer server.Close()

	client := testClient(5)
	defer client.Close()

	body, err := client.Fetch(context.Background(), "river_measure", server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(body) == 0 {
		t.Error("expected non-empty body")
	}
}

// Each retryable status must consume the full retry schedule before the
// client declares failure.
func TestClient_RetryableStatusesExhaustRetries(t *testing.T) {
	for _, code := range []int{500, 502, 503, 504, 429} {
		t.Run(fmt.Sprintf("http_%d", code), func(t *testing.T) {
			var calls atomic.Int64
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(code)
			}))
			defer server.Close()

			const maxAttempts = 3
			client := testClient(maxAttempts)
			defer client.Close()

			_, err := client.Fetch(context.Background(), "river_measure", server.URL)
			if err == nil {
				t.Fatal("expected error after exhausting retries")
			}
			if got := calls.Load(); got != maxAttempts {
				t.Errorf("attempts = %d, want %d", got, maxAttempts)
			}

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("error type = %T, want *FetchError", err)
			}
			if want := HTTPClass(code); fe.Class != want {
				t.Errorf("classification = %q, want %q", fe.Class, want)
			}
		})
	}
}

// Non-retryable 4xx responses must fail on the first attempt without
// consuming the backoff schedule.
func TestClient_PermanentStatusFailsImmediately(t *testing.T) {
	for _, code := range []int{400, 403, 404, 410} {
		t.Run(fmt.Sprintf("http_%d", code), func(t *testing.T) {
			var calls atomic.Int64
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(code)
			}))
			defer server.Close()

			client := testClient(5)
			defer client.Close()

			_, err := client.Fetch(context.Background(), "rain_measure", server.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("attempts = %d, want 1", got)
			}
			if got := Classify(err); got != HTTPClass(code) {
				t.Errorf("classification = %q, want %q", got, HTTPClass(code))
			}
		})
	}
}

func TestClient_RecoversAfterTransientFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"items":{}}`))
	}))
	defer server.Close()

	client := testClient(5)
	defer client.Close()

	body, err := client.Fetch(context.Background(), "river_station", server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != `{"items":{}}` {
		t.Errorf("body = %q", body)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestClient_TimeoutClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(testPolicy(2), 20*time.Millisecond, metrics.New(), logger)
	defer client.Close()

	_, err := client.Fetch(context.Background(), "river_measure", server.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if got := Classify(err); got != ClassTimeout {
		t.Errorf("classification = %q, want %q", got, ClassTimeout)
	}
}

func TestClient_ConnectionErrorClassification(t *testing.T) {
	// grab a port that refuses connections
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := testClient(2)
	defer client.Close()

	_, err := client.Fetch(context.Background(), "rain_station", url)
	if err == nil {
		t.Fatal("expected connection error")
	}
	if got := Classify(err); got != ClassConnection {
		t.Errorf("classification = %q, want %q", got, ClassConnection)
	}
}

func TestClient_ContextCancellationStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := testClient(5)
	defer client.Close()

	_, err := client.Fetch(ctx, "river_measure", server.URL)
	if err == nil {
		t.Fatal("expected error with cancelled context")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	client := testClient(1)
	client.Close()
	client.Close()

	var nilClient *Client
	nilClient.Close() // must not panic
}
