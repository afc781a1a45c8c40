// Warden is a multi-tenant policy evaluation and enforcement engine for
// fleet operations.
//
// It evaluates structured condition trees against live fleet events
// (vehicle status, driver behavior, maintenance, dispatch), producing:
//   - Per-policy verdicts with confidence scores
//   - Violations with a managed open/acknowledged/resolved lifecycle
//   - Enforcement executions per policy mode (monitor, human-in-loop,
//     autonomous) with fail-closed escalation
//   - An append-only audit ledger with JSON/CSV compliance export
//
// Usage:
//
//	# Start the engine with default configuration
//	warden run
//
//	# Start with a custom configuration file
//	warden run --config /path/to/warden.yaml
//
//	# Validate policy files
//	warden lint --file policies.yaml
//
//	# Show version information
//	warden version
package main

func main() {
	Execute()
}
