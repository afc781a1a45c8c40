// Package hooks provides the built-in enforcement hooks for the safety,
// maintenance, and dispatch domains.
//
// Each hook encodes the autonomy boundary for its domain: which actions it
// settles on its own, and which it refuses to take without a human. None of
// them talk to fleet hardware directly; they decide outcomes, and the
// systems consuming execution records carry them out.
package hooks
