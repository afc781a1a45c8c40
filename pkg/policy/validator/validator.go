package validator

import (
	"fmt"
	"regexp"

	"fleetgrid/warden/pkg/policy/ast"
)

// MaxTreeDepth bounds condition tree nesting. Deep trees are almost always
// authoring mistakes and the evaluator recursion must stay cheap.
const MaxTreeDepth = 32

// ValidationError reports why a policy was rejected at write time.
// It carries every problem found, not just the first.
type ValidationError struct {
	PolicyID string
	Errors   []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("policy %s: validation error: %s", e.PolicyID, e.Errors[0])
	}
	return fmt.Sprintf("policy %s: %d validation errors: %v", e.PolicyID, len(e.Errors), e.Errors)
}

// Validate checks a policy before it is persisted or activated. A policy
// that passes is guaranteed structurally sound for the evaluator: finite
// depth, known operators, well-formed combinators, known mode/polarity/
// severity. Evaluation never re-checks any of this.
func Validate(p *ast.Policy) error {
	var errs []string

	if p == nil {
		return &ValidationError{Errors: []string{"policy cannot be nil"}}
	}
	if p.ID == "" {
		errs = append(errs, "policy id cannot be empty")
	}
	if p.TenantID == "" {
		errs = append(errs, "tenant id cannot be empty")
	}
	if p.Name == "" {
		errs = append(errs, "policy name cannot be empty")
	}
	if p.Domain == "" {
		errs = append(errs, "policy domain cannot be empty")
	}
	if !p.Mode.Valid() {
		errs = append(errs, fmt.Sprintf("unknown mode %q", p.Mode))
	}
	if !p.Polarity.Valid() {
		errs = append(errs, fmt.Sprintf("unknown polarity %q", p.Polarity))
	}
	if !p.Severity.Valid() {
		errs = append(errs, fmt.Sprintf("unknown severity %q", p.Severity))
	}
	if p.Version < 1 {
		errs = append(errs, fmt.Sprintf("version must be >= 1, got %d", p.Version))
	}

	if p.Conditions == nil {
		errs = append(errs, "policy must have a condition tree")
	} else {
		errs = append(errs, validateNode(p.Conditions, "conditions", 1)...)
	}

	for i, action := range p.Actions {
		if action.Type == "" {
			errs = append(errs, fmt.Sprintf("actions[%d]: type cannot be empty", i))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{PolicyID: p.ID, Errors: errs}
	}
	return nil
}

// validateNode recursively checks one condition node. The depth parameter
// guards against over-deep (and, for untrusted input, cyclic) trees: the walk
// stops at MaxTreeDepth rather than recursing forever.
func validateNode(node *ast.ConditionNode, path string, depth int) []string {
	var errs []string

	if node == nil {
		return []string{fmt.Sprintf("%s: node cannot be nil", path)}
	}
	if depth > MaxTreeDepth {
		return []string{fmt.Sprintf("%s: condition tree exceeds max depth %d", path, MaxTreeDepth)}
	}

	switch node.Kind {
	case ast.KindLeaf:
		errs = append(errs, validateLeaf(node, path)...)
		if len(node.Children) > 0 {
			errs = append(errs, fmt.Sprintf("%s: leaf node cannot have children", path))
		}

	case ast.KindAll, ast.KindAny:
		if len(node.Children) == 0 {
			errs = append(errs, fmt.Sprintf("%s: %s node must have at least one child", path, node.Kind))
		}
		for i, child := range node.Children {
			errs = append(errs, validateNode(child, fmt.Sprintf("%s.children[%d]", path, i), depth+1)...)
		}

	case ast.KindNot:
		if len(node.Children) != 1 {
			errs = append(errs, fmt.Sprintf("%s: not node must have exactly one child, got %d", path, len(node.Children)))
		}
		for i, child := range node.Children {
			errs = append(errs, validateNode(child, fmt.Sprintf("%s.children[%d]", path, i), depth+1)...)
		}

	default:
		errs = append(errs, fmt.Sprintf("%s: unknown node kind %q", path, node.Kind))
	}

	return errs
}

// validateLeaf checks a leaf's operator and operand shape.
func validateLeaf(node *ast.ConditionNode, path string) []string {
	var errs []string

	if node.Field == "" {
		errs = append(errs, fmt.Sprintf("%s: leaf field cannot be empty", path))
	}
	if !node.Operator.Valid() {
		errs = append(errs, fmt.Sprintf("%s: unknown operator %q", path, node.Operator))
		return errs
	}
	if node.Value == nil && node.ValueField == "" {
		errs = append(errs, fmt.Sprintf("%s: leaf must have a value or value_field", path))
		return errs
	}
	if node.Value != nil && node.ValueField != "" {
		errs = append(errs, fmt.Sprintf("%s: leaf cannot have both value and value_field", path))
	}

	switch node.Operator {
	case ast.OperatorIn, ast.OperatorNotIn:
		if node.ValueField == "" {
			if _, ok := node.Value.([]any); !ok {
				errs = append(errs, fmt.Sprintf("%s: operator %s requires a list operand", path, node.Operator))
			}
		}

	case ast.OperatorWithinRange:
		if node.ValueField == "" {
			list, ok := node.Value.([]any)
			if !ok || len(list) != 2 {
				errs = append(errs, fmt.Sprintf("%s: operator within_range requires a [min, max] operand", path))
			}
		}

	case ast.OperatorMatches:
		if node.ValueField != "" {
			errs = append(errs, fmt.Sprintf("%s: operator matches does not support value_field", path))
			break
		}
		pattern, ok := node.Value.(string)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: operator matches requires a string pattern", path))
			break
		}
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid pattern %q: %v", path, pattern, err))
		}
	}

	return errs
}
