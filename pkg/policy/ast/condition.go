package ast

// NodeKind discriminates the tagged-variant condition tree.
type NodeKind string

const (
	KindLeaf NodeKind = "leaf" // field op value
	KindAll  NodeKind = "all"  // AND of children
	KindAny  NodeKind = "any"  // OR of children
	KindNot  NodeKind = "not"  // NOT of exactly one child
)

// Operator is a comparison operator applied by a leaf condition to a named
// event field. The set is closed: anything outside it is rejected at write
// time by the validator.
type Operator string

const (
	OperatorEquals         Operator = "equals"
	OperatorNotEquals      Operator = "not_equals"
	OperatorGreaterThan    Operator = "greater_than"
	OperatorLessThan       Operator = "less_than"
	OperatorGreaterOrEqual Operator = "greater_or_equal"
	OperatorLessOrEqual    Operator = "less_or_equal"
	OperatorContains       Operator = "contains"
	OperatorNotContains    Operator = "not_contains"
	OperatorIn             Operator = "in"
	OperatorNotIn          Operator = "not_in"
	OperatorMatches        Operator = "matches"      // regex match
	OperatorWithinRange    Operator = "within_range" // [min, max] inclusive
)

// Operators lists every supported operator. Used by the validator and by
// lint tooling to report the allowed set.
var Operators = []Operator{
	OperatorEquals, OperatorNotEquals,
	OperatorGreaterThan, OperatorLessThan,
	OperatorGreaterOrEqual, OperatorLessOrEqual,
	OperatorContains, OperatorNotContains,
	OperatorIn, OperatorNotIn,
	OperatorMatches, OperatorWithinRange,
}

// Valid reports whether op is a member of the closed operator set.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// ConditionNode is one node of a policy's condition tree.
// Leaves compare a named event field against an operand; internal nodes
// combine children with all/any/not. Trees are validated to be finite-depth
// and well-formed when the policy is written, so the evaluator never has to.
type ConditionNode struct {
	Kind NodeKind `json:"kind" yaml:"kind"`

	// Leaf fields.
	Field    string   `json:"field,omitempty" yaml:"field,omitempty"`
	Operator Operator `json:"operator,omitempty" yaml:"operator,omitempty"`

	// Value is the operand: a scalar for comparison operators, a list for
	// in/not_in, a two-element [min, max] list for within_range, a regex
	// source string for matches. For operators like "greater_than" the field
	// may also be compared against another event field via ValueField.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// ValueField, when set, names another event field to use as the operand
	// instead of Value (e.g. speed > limit where both are event fields).
	ValueField string `json:"value_field,omitempty" yaml:"value_field,omitempty"`

	// Children of an internal node. Exactly one for "not".
	Children []*ConditionNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsLeaf returns true for field-operator-operand nodes.
func (c *ConditionNode) IsLeaf() bool { return c.Kind == KindLeaf }

// IsCombinator returns true for all/any/not nodes.
func (c *ConditionNode) IsCombinator() bool {
	return c.Kind == KindAll || c.Kind == KindAny || c.Kind == KindNot
}

// Depth returns the depth of the tree rooted at c. A leaf has depth 1.
// Cycles are impossible for validated trees; callers validating untrusted
// trees must bound recursion separately (see policy/validator).
func (c *ConditionNode) Depth() int {
	if c == nil {
		return 0
	}
	max := 0
	for _, child := range c.Children {
		if d := child.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}
