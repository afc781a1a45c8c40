// Package store holds versioned policies and serves active policy sets to
// the evaluation engine.
//
// Reads come from immutable per-tenant snapshots behind an atomic pointer,
// so an evaluation in flight always sees a consistent policy set even while
// a write publishes a new one. Writes go through a Backend (in-memory or
// SQLite) and are validated before they can become visible.
//
// Policies are never mutated in place and never deleted: a change is a new
// version, and removal is deactivation.
package store
