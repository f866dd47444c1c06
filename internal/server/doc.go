// Package server provides the exporter's two HTTP listeners.
//
//   - Metrics listener: Prometheus exposition at "/metrics"
//   - Health listener: JSON health summary at "/health"
//
// Both are read-only: handlers never trigger a network fetch and never
// mutate shared state. Ports are bound synchronously so a bind failure is
// fail-fast at startup, and both servers shut down gracefully with a
// 5-second timeout when the run context is cancelled.
//
// Users of the riverlevel library should not need to interact with this
// package directly.
package server
