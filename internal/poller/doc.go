// Package poller provides the HTTP client used to fetch flood-monitoring
// API documents, and the retry policy applied to transient failures.
//
// The main components are:
//
//   - [Client]: pooled HTTP client with per-attempt timeouts, bounded
//     exponential retry, and metric side effects
//   - [Policy]: the retry policy (attempts, base delay, ceiling)
//   - [FetchError]: a classified fetch failure (connection_error, timeout,
//     request_error, http_<code>)
//
// Users of the riverlevel library should not need to interact with this
// package directly.
package poller
