package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"floodwatch/riverlevel/internal/metrics"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; the exporter talks to a single API host
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

// Failure classifications carried by [FetchError] and recorded in the
// endpoint status table. HTTP failures use the "http_<code>" form produced
// by [HTTPClass].
const (
	ClassConnection = "connection_error"
	ClassTimeout    = "timeout"
	ClassRequest    = "request_error"
)

// HTTPClass returns the classification for an HTTP error status.
func HTTPClass(code int) string {
	return fmt.Sprintf("http_%d", code)
}

// FetchError is a classified failure from [Client.Fetch]. It is the terminal
// error after the retry schedule is exhausted, or the first non-retryable
// failure encountered.
type FetchError struct {
	Endpoint string
	Class    string
	Code     int // HTTP status, 0 if the request never completed
	Err      error

	retryable bool
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Class, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Class)
}

// Unwrap returns the underlying cause, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying: connection
// errors, timeouts, HTTP 429 and 5xx. Other 4xx responses and malformed
// requests are permanent.
func (e *FetchError) Retryable() bool {
	return e.retryable
}

// Classify returns the failure classification of err, or "" when err is nil
// or not a [FetchError].
func Classify(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ""
}

// Policy bounds the retry behaviour of [Client.Fetch].
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry; subsequent
	// delays double up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
}

// DefaultPolicy is the production retry policy: up to 5 attempts with
// exponential backoff starting at 1s, capped at 16s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     16 * time.Second,
	}
}

// Client fetches flood-monitoring API documents over HTTP.
//
// Every fetch applies the configured retry [Policy] to transient failures
// and a fixed per-attempt timeout. The client records request metrics as a
// side effect: per-attempt duration and failure counts, plus a success
// counter and last-success timestamp on completion, all labeled by logical
// endpoint name. Fetch never panics and never returns a partial document.
type Client struct {
	httpClient *http.Client
	policy     Policy
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a polling [Client].
//
// timeout is the per-attempt timeout, applied via context; the worst-case
// latency of a single Fetch is bounded by (timeout + backoff) x attempts.
func NewClient(policy Policy, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			// no global timeout; attempts carry their own deadline
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		policy:  policy,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// Fetch performs a GET against url, retrying transient failures per the
// client's policy. On success it returns the response body (limited to 1MB)
// and a nil error. On exhaustion or a permanent failure it returns a
// [FetchError]; it never panics and never propagates anything else.
//
// endpoint is the logical endpoint name used for metric labels, status
// classification, and logs.
func (c *Client) Fetch(ctx context.Context, endpoint, url string) ([]byte, error) {
	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		body, ferr := c.attempt(ctx, endpoint, url)
		if ferr == nil {
			return body, nil
		}

		c.metrics.IncFailure(endpoint)
		if !ferr.Retryable() {
			return nil, backoff.Permanent(error(ferr))
		}
		c.logger.Warn("fetch attempt failed, will retry",
			"endpoint", endpoint,
			"attempt", attempt,
			"classification", ferr.Class,
		)
		return nil, ferr
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.policy.InitialBackoff
	bo.MaxInterval = c.policy.MaxBackoff
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	retries := uint64(0)
	if c.policy.MaxAttempts > 1 {
		retries = uint64(c.policy.MaxAttempts - 1)
	}

	body, err := backoff.RetryWithData(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx),
	)
	if err != nil {
		c.logger.Error("fetch failed",
			"endpoint", endpoint,
			"attempts", attempt,
			"classification", Classify(err),
			"error", err,
		)
		return nil, err
	}

	c.metrics.IncSuccess(endpoint, time.Now())
	return body, nil
}

// attempt performs a single GET with its own deadline, observing the
// request duration regardless of outcome.
func (c *Client) attempt(ctx context.Context, endpoint, url string) ([]byte, *FetchError) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		c.metrics.ObserveRequest(endpoint, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Class: ClassRequest, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &FetchError{
			Endpoint:  endpoint,
			Class:     HTTPClass(resp.StatusCode),
			Code:      resp.StatusCode,
			retryable: true,
		}
	case resp.StatusCode >= 400:
		return nil, &FetchError{
			Endpoint: endpoint,
			Class:    HTTPClass(resp.StatusCode),
			Code:     resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &FetchError{
			Endpoint:  endpoint,
			Class:     ClassRequest,
			Code:      resp.StatusCode,
			Err:       err,
			retryable: true,
		}
	}

	return body, nil
}

// classifyTransportError maps a transport-level error to a FetchError.
func (c *Client) classifyTransportError(endpoint string, err error) *FetchError {
	// shutdown, not a network condition: don't burn retries on it
	if errors.Is(err, context.Canceled) {
		return &FetchError{Endpoint: endpoint, Class: ClassRequest, Err: err}
	}

	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &FetchError{Endpoint: endpoint, Class: ClassTimeout, Err: err, retryable: true}
	}

	return &FetchError{Endpoint: endpoint, Class: ClassConnection, Err: err, retryable: true}
}

// Close releases idle connections in the client's pool. The client remains
// usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
