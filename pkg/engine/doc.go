// Package engine turns one event into one verdict per active policy.
//
// Evaluation is stateless and order-insensitive: each policy sees the same
// immutable event and policy snapshot, concurrency is bounded by an
// errgroup limit, and per-policy failures degrade that policy's verdict
// without touching the rest of the batch.
package engine
