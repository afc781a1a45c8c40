// Package ast defines the structured policy model: the tagged-variant
// condition tree (leaf comparisons combined with all/any/not), the closed
// operator set, enforcement modes, polarity, severity, and actions.
//
// These types are the wire and storage shape of a policy. They carry no
// behavior beyond cheap structural helpers; evaluation lives in
// policy/evaluator and write-time validation in policy/validator.
package ast
