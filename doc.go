// Package riverlevel polls UK Environment Agency flood-monitoring endpoints
// for river level and rainfall readings and republishes them as Prometheus
// metrics, alongside a JSON health report of upstream availability.
//
// The exporter is deliberately forgiving about upstream data: missing or
// malformed fields fall back to sentinel labels or keep the previously
// published value, and an unreachable endpoint degrades the health report
// without ever stopping the poll loop.
package riverlevel
