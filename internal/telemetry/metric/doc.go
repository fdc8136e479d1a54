// Package metric provides Prometheus metrics for pvectl.
//
// A Registry counts API requests and logins reported by a pveapi.Client
// (it satisfies pveapi.Observer) and exports cluster inventory gauges
// refreshed by the exporter command.
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
