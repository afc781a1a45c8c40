// Package metrics provides Prometheus instrumentation for the engine.
//
// One Collector owns every metric and its registry; components record
// through it rather than registering their own. Metrics cover evaluation
// throughput and latency, verdict and violation outcomes, enforcement hook
// results, and ledger writes, all exposed on /metrics in standard
// Prometheus format:
//
//	# HELP fleetgrid_warden_evaluations_total Total events evaluated
//	# TYPE fleetgrid_warden_evaluations_total counter
//	fleetgrid_warden_evaluations_total{domain="safety",tenant_id="tenant-a"} 1234
package metrics
