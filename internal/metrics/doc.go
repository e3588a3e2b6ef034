// Package metrics exposes scheduler and buffer measurements as Prometheus
// collectors.
//
// Collectors are registered on a private registry rather than the global
// default, so tests and the HTTP handler see exactly this daemon's series.
// Collector implements scheduler.Observer.
package metrics
