// Package validator performs write-time structural validation of policies.
//
// Validation runs once, when a policy record lands in the store (or when
// "warden lint" checks a policy file); it never runs during evaluation.
// A validated policy guarantees the evaluator a finite-depth tree, a closed
// operator set, and well-formed combinators, which is what lets evaluation
// stay error-free by construction.
package validator
