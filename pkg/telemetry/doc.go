// Package telemetry groups Warden's observability concerns.
//
//   - logging: slog handler setup (level, format, default logger)
//   - metrics: Prometheus collectors for evaluation, enforcement, and the
//     ledger, plus the promhttp handler
package telemetry
