package evaluator

import (
	"testing"
	"time"

	"fleetgrid/warden/pkg/event"
	"fleetgrid/warden/pkg/policy/ast"
)

func testEvent(fields map[string]any) *event.Event {
	return &event.Event{
		ID:        "evt-1",
		TenantID:  "tenant-a",
		Domain:    "safety",
		EntityID:  "vehicle-17",
		Fields:    fields,
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func leaf(field string, op ast.Operator, value any) *ast.ConditionNode {
	return &ast.ConditionNode{Kind: ast.KindLeaf, Field: field, Operator: op, Value: value}
}

// TestEvaluateLeaf_Operators exercises every operator in the closed set.
func TestEvaluateLeaf_Operators(t *testing.T) {
	ev := testEvent(map[string]any{
		"speed":      85.0,
		"limit":      65,
		"status":     "en_route",
		"route":      "I-80 westbound",
		"cargo":      []any{"fuel", "produce"},
		"axles":      3,
		"hazmat":     true,
		"inspection": "2026-02-11",
	})

	tests := []struct {
		name          string
		node          *ast.ConditionNode
		wantSatisfied bool
		wantConf      float64
	}{
		{"equals number", leaf("speed", ast.OperatorEquals, 85), true, 1},
		{"equals mixed numeric types", leaf("limit", ast.OperatorEquals, 65.0), true, 1},
		{"equals string", leaf("status", ast.OperatorEquals, "en_route"), true, 1},
		{"equals bool", leaf("hazmat", ast.OperatorEquals, true), true, 1},
		{"not_equals", leaf("status", ast.OperatorNotEquals, "idle"), true, 1},
		{"greater_than", leaf("speed", ast.OperatorGreaterThan, 65), true, 1},
		{"greater_than false", leaf("speed", ast.OperatorGreaterThan, 90), false, 1},
		{"less_than", leaf("axles", ast.OperatorLessThan, 5), true, 1},
		{"greater_or_equal boundary", leaf("speed", ast.OperatorGreaterOrEqual, 85), true, 1},
		{"less_or_equal boundary", leaf("limit", ast.OperatorLessOrEqual, 65), true, 1},
		{"contains substring", leaf("route", ast.OperatorContains, "westbound"), true, 1},
		{"contains list element", leaf("cargo", ast.OperatorContains, "fuel"), true, 1},
		{"not_contains", leaf("route", ast.OperatorNotContains, "eastbound"), true, 1},
		{"in", leaf("status", ast.OperatorIn, []any{"idle", "en_route"}), true, 1},
		{"not_in", leaf("status", ast.OperatorNotIn, []any{"idle", "parked"}), true, 1},
		{"matches", leaf("inspection", ast.OperatorMatches, `^\d{4}-\d{2}-\d{2}$`), true, 1},
		{"matches false", leaf("status", ast.OperatorMatches, `^\d+$`), false, 1},
		{"within_range", leaf("speed", ast.OperatorWithinRange, []any{60, 90}), true, 1},
		{"within_range boundary", leaf("limit", ast.OperatorWithinRange, []any{65, 90}), true, 1},
		{"within_range outside", leaf("speed", ast.OperatorWithinRange, []any{0, 60}), false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.node, ev)
			if got.Satisfied != tt.wantSatisfied {
				t.Errorf("Satisfied = %v, want %v", got.Satisfied, tt.wantSatisfied)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

// TestEvaluateLeaf_TypeMismatch verifies the (false, 0) contract: a leaf that
// cannot be evaluated fails with zero confidence and never panics.
func TestEvaluateLeaf_TypeMismatch(t *testing.T) {
	ev := testEvent(map[string]any{
		"speed":  85.0,
		"status": "en_route",
	})

	tests := []struct {
		name string
		node *ast.ConditionNode
	}{
		{"missing field", leaf("altitude", ast.OperatorGreaterThan, 100)},
		{"string vs numeric compare", leaf("status", ast.OperatorGreaterThan, 10)},
		{"numeric vs string equals", leaf("speed", ast.OperatorEquals, "fast")},
		{"contains on number", leaf("speed", ast.OperatorContains, "8")},
		{"in with scalar operand", leaf("status", ast.OperatorIn, "en_route")},
		{"matches on number", leaf("speed", ast.OperatorMatches, `\d+`)},
		{"matches with bad pattern", leaf("status", ast.OperatorMatches, `([`)},
		{"within_range malformed bounds", leaf("speed", ast.OperatorWithinRange, []any{10})},
		{"within_range non-numeric bounds", leaf("speed", ast.OperatorWithinRange, []any{"a", "b"})},
		{"unknown operator", leaf("speed", ast.Operator("sounds_like"), 85)},
		{"missing value_field", &ast.ConditionNode{Kind: ast.KindLeaf, Field: "speed", Operator: ast.OperatorGreaterThan, ValueField: "limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.node, ev)
			if got.Satisfied {
				t.Errorf("Satisfied = true, want false")
			}
			if got.Confidence != 0 {
				t.Errorf("Confidence = %v, want 0", got.Confidence)
			}
		})
	}
}

// TestEvaluate_FieldToFieldComparison covers value_field operands
// (e.g. speed > limit where both are event fields).
func TestEvaluate_FieldToFieldComparison(t *testing.T) {
	ev := testEvent(map[string]any{"speed": 85.0, "limit": 65})

	node := &ast.ConditionNode{
		Kind:       ast.KindLeaf,
		Field:      "speed",
		Operator:   ast.OperatorGreaterThan,
		ValueField: "limit",
	}

	got := Evaluate(node, ev)
	if !got.Satisfied || got.Confidence != 1 {
		t.Fatalf("Evaluate() = (%v, %v), want (true, 1)", got.Satisfied, got.Confidence)
	}
	if len(got.Triggered) != 1 {
		t.Fatalf("len(Triggered) = %d, want 1", len(got.Triggered))
	}
	if got.Triggered[0].Field != "speed" {
		t.Errorf("Triggered[0].Field = %q, want %q", got.Triggered[0].Field, "speed")
	}
}

// TestEvaluate_Combinators covers all/any/not composition and short-circuits.
func TestEvaluate_Combinators(t *testing.T) {
	ev := testEvent(map[string]any{"speed": 85.0, "limit": 65, "status": "en_route"})

	tests := []struct {
		name          string
		node          *ast.ConditionNode
		wantSatisfied bool
	}{
		{
			name: "all true",
			node: &ast.ConditionNode{Kind: ast.KindAll, Children: []*ast.ConditionNode{
				leaf("speed", ast.OperatorGreaterThan, 65),
				leaf("status", ast.OperatorEquals, "en_route"),
			}},
			wantSatisfied: true,
		},
		{
			name: "all short-circuits on false",
			node: &ast.ConditionNode{Kind: ast.KindAll, Children: []*ast.ConditionNode{
				leaf("speed", ast.OperatorLessThan, 10),
				leaf("status", ast.OperatorEquals, "en_route"),
			}},
			wantSatisfied: false,
		},
		{
			name: "any picks second child",
			node: &ast.ConditionNode{Kind: ast.KindAny, Children: []*ast.ConditionNode{
				leaf("status", ast.OperatorEquals, "idle"),
				leaf("speed", ast.OperatorGreaterThan, 65),
			}},
			wantSatisfied: true,
		},
		{
			name: "not inverts",
			node: &ast.ConditionNode{Kind: ast.KindNot, Children: []*ast.ConditionNode{
				leaf("status", ast.OperatorEquals, "idle"),
			}},
			wantSatisfied: true,
		},
		{
			name: "not with wrong arity fails closed",
			node: &ast.ConditionNode{Kind: ast.KindNot, Children: []*ast.ConditionNode{
				leaf("status", ast.OperatorEquals, "idle"),
				leaf("speed", ast.OperatorGreaterThan, 65),
			}},
			wantSatisfied: false,
		},
		{
			name:          "unknown combinator fails closed",
			node:          &ast.ConditionNode{Kind: ast.NodeKind("xor"), Children: []*ast.ConditionNode{leaf("speed", ast.OperatorGreaterThan, 65)}},
			wantSatisfied: false,
		},
		{
			name:          "empty all fails closed",
			node:          &ast.ConditionNode{Kind: ast.KindAll},
			wantSatisfied: false,
		},
		{
			name:          "nil tree fails closed",
			node:          nil,
			wantSatisfied: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.node, ev)
			if got.Satisfied != tt.wantSatisfied {
				t.Errorf("Satisfied = %v, want %v", got.Satisfied, tt.wantSatisfied)
			}
		})
	}
}

// TestEvaluate_ConfidenceAggregation verifies the pessimistic/optimistic
// asymmetry: all-confidence is bounded above by the weakest evaluated child,
// any-confidence bounded below by the strongest.
func TestEvaluate_ConfidenceAggregation(t *testing.T) {
	ev := testEvent(map[string]any{"speed": 85.0})

	strong := leaf("speed", ast.OperatorGreaterThan, 65) // evaluates cleanly, confidence 1
	weak := leaf("altitude", ast.OperatorGreaterThan, 0) // missing field, confidence 0

	t.Run("all takes minimum", func(t *testing.T) {
		// Weak child first so the strong one is still evaluated.
		node := &ast.ConditionNode{Kind: ast.KindAny, Children: []*ast.ConditionNode{weak, strong}}
		inner := Evaluate(node, ev)
		if inner.Confidence != 1 {
			t.Fatalf("any confidence = %v, want 1", inner.Confidence)
		}

		all := &ast.ConditionNode{Kind: ast.KindAll, Children: []*ast.ConditionNode{strong, weak}}
		got := Evaluate(all, ev)
		if got.Satisfied {
			t.Errorf("Satisfied = true, want false (weak leaf fails)")
		}
		if got.Confidence != 0 {
			t.Errorf("all confidence = %v, want 0 (min over children)", got.Confidence)
		}
	})

	t.Run("any takes maximum", func(t *testing.T) {
		node := &ast.ConditionNode{Kind: ast.KindAny, Children: []*ast.ConditionNode{weak, strong}}
		got := Evaluate(node, ev)
		if !got.Satisfied {
			t.Errorf("Satisfied = false, want true")
		}
		if got.Confidence != 1 {
			t.Errorf("any confidence = %v, want 1 (max over children)", got.Confidence)
		}
	})

	t.Run("one strong leaf cannot mask a weak prerequisite", func(t *testing.T) {
		// both children satisfied, one weak: satisfied AND must still
		// surface the weak confidence.
		weakButTrue := &ast.ConditionNode{Kind: ast.KindNot, Children: []*ast.ConditionNode{weak}}
		all := &ast.ConditionNode{Kind: ast.KindAll, Children: []*ast.ConditionNode{strong, weakButTrue}}
		got := Evaluate(all, ev)
		if !got.Satisfied {
			t.Fatalf("Satisfied = false, want true")
		}
		if got.Confidence != 0 {
			t.Errorf("Confidence = %v, want 0", got.Confidence)
		}
	})
}

// TestEvaluate_DegradedMarking verifies the structural/data failure split:
// malformed nodes taint the result as degraded, while a missing field or a
// clean false stays trustworthy.
func TestEvaluate_DegradedMarking(t *testing.T) {
	ev := testEvent(map[string]any{"speed": 85.0, "status": "en_route"})

	clean := leaf("speed", ast.OperatorGreaterThan, 65)
	cleanFalse := leaf("speed", ast.OperatorGreaterThan, 90)
	missing := leaf("altitude", ast.OperatorGreaterThan, 0)
	garbage := &ast.ConditionNode{Kind: ast.NodeKind("garbage")}

	tests := []struct {
		name          string
		node          *ast.ConditionNode
		wantSatisfied bool
		wantDegraded  bool
	}{
		{"nil tree", nil, false, true},
		{"unknown node kind", garbage, false, true},
		{"unknown operator", leaf("speed", ast.Operator("sounds_like"), 85), false, true},
		{"not with wrong arity", &ast.ConditionNode{Kind: ast.KindNot, Children: []*ast.ConditionNode{clean, clean}}, false, true},
		{"empty all", &ast.ConditionNode{Kind: ast.KindAll}, false, true},
		{"missing field is clean", missing, false, false},
		{"clean false is clean", cleanFalse, false, false},
		{
			name:          "all decided by garbage child",
			node:          &ast.ConditionNode{Kind: ast.KindAll, Children: []*ast.ConditionNode{clean, garbage}},
			wantSatisfied: false,
			wantDegraded:  true,
		},
		{
			name:          "all decided by clean false before garbage",
			node:          &ast.ConditionNode{Kind: ast.KindAll, Children: []*ast.ConditionNode{cleanFalse, garbage}},
			wantSatisfied: false,
			wantDegraded:  false,
		},
		{
			name:          "any rescued by clean true",
			node:          &ast.ConditionNode{Kind: ast.KindAny, Children: []*ast.ConditionNode{garbage, clean}},
			wantSatisfied: true,
			wantDegraded:  false,
		},
		{
			name:          "any false with unevaluable branch",
			node:          &ast.ConditionNode{Kind: ast.KindAny, Children: []*ast.ConditionNode{garbage, cleanFalse}},
			wantSatisfied: false,
			wantDegraded:  true,
		},
		{
			name:          "not propagates child degradation",
			node:          &ast.ConditionNode{Kind: ast.KindNot, Children: []*ast.ConditionNode{garbage}},
			wantSatisfied: true,
			wantDegraded:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.node, ev)
			if got.Satisfied != tt.wantSatisfied {
				t.Errorf("Satisfied = %v, want %v", got.Satisfied, tt.wantSatisfied)
			}
			if got.Degraded != tt.wantDegraded {
				t.Errorf("Degraded = %v, want %v", got.Degraded, tt.wantDegraded)
			}
		})
	}
}

// TestEvaluate_TriggeredConditions verifies the audit record of satisfied leaves.
func TestEvaluate_TriggeredConditions(t *testing.T) {
	ev := testEvent(map[string]any{"speed": 85.0, "limit": 65, "status": "en_route"})

	node := &ast.ConditionNode{Kind: ast.KindAll, Children: []*ast.ConditionNode{
		leaf("speed", ast.OperatorGreaterThan, 65),
		leaf("status", ast.OperatorEquals, "en_route"),
	}}

	got := Evaluate(node, ev)
	if len(got.Triggered) != 2 {
		t.Fatalf("len(Triggered) = %d, want 2", len(got.Triggered))
	}
	if got.Triggered[0].Operator != ast.OperatorGreaterThan {
		t.Errorf("Triggered[0].Operator = %q, want greater_than", got.Triggered[0].Operator)
	}
}

// TestEvaluate_DeepTreeBounded guards the recursion bound: a pathological
// unvalidated tree fails closed instead of overflowing.
func TestEvaluate_DeepTreeBounded(t *testing.T) {
	node := leaf("speed", ast.OperatorGreaterThan, 0)
	for i := 0; i < 200; i++ {
		node = &ast.ConditionNode{Kind: ast.KindNot, Children: []*ast.ConditionNode{node}}
	}

	got := Evaluate(node, testEvent(map[string]any{"speed": 85.0}))
	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0 for over-deep tree", got.Confidence)
	}
}
