package evaluator

import (
	"fleetgrid/warden/pkg/event"
	"fleetgrid/warden/pkg/policy/ast"
)

// Result is the outcome of evaluating one condition tree against one event.
type Result struct {
	// Satisfied is true when the tree holds for the event.
	Satisfied bool

	// Confidence is in [0,1]. A cleanly evaluated leaf scores 1.0; a leaf
	// that could not be evaluated (missing field, type mismatch, malformed
	// node) scores 0.0. Internal nodes aggregate pessimistically for "all"
	// (minimum over evaluated children) and optimistically for "any"
	// (maximum over evaluated children), so an AND of prerequisites cannot
	// be carried by one strong leaf masking a weak one.
	Confidence float64

	// Triggered lists the leaves that held during evaluation, for the
	// verdict's audit record.
	Triggered []TriggeredCondition

	// Degraded is true when the outcome rests on a malformed node (unknown
	// node kind, unknown operator, bad combinator arity, nil subtree) rather
	// than on the event's data. A degraded false is "could not evaluate",
	// not "evaluated to false", and callers must not act on it. A missing
	// field or a type mismatch is a data problem, not degradation: those
	// fail the leaf cleanly.
	Degraded bool
}

// TriggeredCondition records one satisfied leaf.
type TriggeredCondition struct {
	Field    string       `json:"field"`
	Operator ast.Operator `json:"operator"`
	Actual   any          `json:"actual"`
	Operand  any          `json:"operand"`
}

// Evaluate evaluates a condition tree against an event.
//
// It is pure and total: no I/O, no panics, no error return. A node that
// cannot be evaluated fails as (false, 0) and evaluation continues; when the
// failure is structural (a malformed node that slipped past write-time
// validation) the result is additionally marked Degraded, so callers can
// tell a trustworthy false from a tree they must not act on.
func Evaluate(node *ast.ConditionNode, ev *event.Event) Result {
	r := Result{}
	r.Satisfied, r.Confidence, r.Degraded = eval(node, ev, &r.Triggered, 0)
	return r
}

// maxEvalDepth is a belt-and-braces recursion bound. Validated trees are
// already depth-limited at write time.
const maxEvalDepth = 64

func eval(node *ast.ConditionNode, ev *event.Event, triggered *[]TriggeredCondition, depth int) (satisfied bool, confidence float64, degraded bool) {
	if node == nil || depth > maxEvalDepth {
		return false, 0, true
	}

	switch node.Kind {
	case ast.KindLeaf:
		return evalLeaf(node, ev, triggered)

	case ast.KindAll:
		return evalAll(node, ev, triggered, depth)

	case ast.KindAny:
		return evalAny(node, ev, triggered, depth)

	case ast.KindNot:
		if len(node.Children) != 1 {
			return false, 0, true
		}
		satisfied, confidence, degraded := eval(node.Children[0], ev, triggered, depth+1)
		return !satisfied, confidence, degraded

	default:
		return false, 0, true
	}
}

// evalAll is AND: short-circuits on the first false child. Confidence is the
// minimum over the children evaluated before the short circuit. The result
// is degraded when the deciding child was: a false forced by a malformed
// child is not a real false.
func evalAll(node *ast.ConditionNode, ev *event.Event, triggered *[]TriggeredCondition, depth int) (bool, float64, bool) {
	if len(node.Children) == 0 {
		return false, 0, true
	}

	confidence := 1.0
	degraded := false
	for _, child := range node.Children {
		satisfied, c, d := eval(child, ev, triggered, depth+1)
		if c < confidence {
			confidence = c
		}
		if d {
			degraded = true
		}
		if !satisfied {
			return false, confidence, d
		}
	}
	return true, confidence, degraded
}

// evalAny is OR: short-circuits on the first true child. Confidence is the
// maximum over the children evaluated up to and including the short circuit.
// A clean true child settles the result; an overall false is degraded when
// any branch could not be evaluated, since that branch might have held.
func evalAny(node *ast.ConditionNode, ev *event.Event, triggered *[]TriggeredCondition, depth int) (bool, float64, bool) {
	if len(node.Children) == 0 {
		return false, 0, true
	}

	confidence := 0.0
	degraded := false
	for _, child := range node.Children {
		satisfied, c, d := eval(child, ev, triggered, depth+1)
		if c > confidence {
			confidence = c
		}
		if d {
			degraded = true
		}
		if satisfied {
			return true, confidence, d
		}
	}
	return false, confidence, degraded
}

// evalLeaf resolves the field and operand, then applies the operator.
// A missing field or type failure yields a clean (false, 0); an operator
// outside the closed set is a structural defect and degrades the result.
func evalLeaf(node *ast.ConditionNode, ev *event.Event, triggered *[]TriggeredCondition) (bool, float64, bool) {
	if !node.Operator.Valid() {
		return false, 0, true
	}

	actual, ok := ev.Field(node.Field)
	if !ok {
		return false, 0, false
	}

	operand := node.Value
	if node.ValueField != "" {
		operand, ok = ev.Field(node.ValueField)
		if !ok {
			return false, 0, false
		}
	}

	satisfied, ok := applyOperator(node.Operator, actual, operand)
	if !ok {
		return false, 0, false
	}

	if satisfied {
		*triggered = append(*triggered, TriggeredCondition{
			Field:    node.Field,
			Operator: node.Operator,
			Actual:   actual,
			Operand:  operand,
		})
	}
	return satisfied, 1.0, false
}
