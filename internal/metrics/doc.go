// Package metrics owns the Prometheus instruments published by the exporter.
//
// All instruments are registered on a dedicated registry rather than the
// global default, so tests can create isolated instances and the exposition
// handler serves exactly the exporter's metrics. Sensor gauges are only ever
// written on a successful, validated extraction; a failed poll cycle leaves
// the previous value in place so consumers can distinguish "no new data"
// (stale last-success timestamp) from a legitimate zero reading.
package metrics
