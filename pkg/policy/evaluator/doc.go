// Package evaluator evaluates condition trees against events.
//
// This is the side-effect-free core of the engine: pure functions over
// (tree, event) with no I/O, no clock, and no error path. Whatever cannot
// be evaluated (a missing field, a type-mismatched operand, a node that
// slipped past write-time validation) fails closed as satisfied=false with
// confidence 0 instead of raising. A single bad leaf can weaken a verdict
// but never abort a batch. Structural defects additionally mark the result
// degraded, which tells callers the outcome reflects a broken tree rather
// than the event's data.
//
// Confidence aggregation: "all" takes the minimum of the children it
// evaluated, "any" takes the maximum, "not" inverts satisfaction and passes
// confidence through. A cleanly evaluated leaf scores 1.0 regardless of
// outcome.
package evaluator
