// Package ledger defines the durable decision records of the engine:
// verdicts, violations, and executions, together with the storage contract
// that persists them.
//
// The ledger is append-only. Verdicts are immutable once written. Violations
// admit exactly one mutable dimension, their status, which moves along
// open -> acknowledged -> resolved (or open -> resolved directly) under a
// compare-and-swap discipline. Executions are settled once: a pending
// approval is decided in place, never duplicated.
//
// Every record carries a tenant id and every query is tenant-scoped.
package ledger
