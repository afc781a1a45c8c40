package validator

import (
	"strings"
	"testing"

	"fleetgrid/warden/pkg/policy/ast"
)

func validPolicy() *ast.Policy {
	return &ast.Policy{
		ID:       "pol-speed",
		TenantID: "tenant-a",
		Name:     "speed over limit",
		Domain:   "safety",
		Mode:     ast.ModeAutonomous,
		Polarity: ast.PolarityProhibition,
		Severity: ast.SeverityHigh,
		Version:  1,
		Active:   true,
		Conditions: &ast.ConditionNode{
			Kind:       ast.KindLeaf,
			Field:      "speed",
			Operator:   ast.OperatorGreaterThan,
			ValueField: "limit",
		},
		Actions: []ast.Action{{Type: "limit_speed", Params: map[string]any{"max": 65}}},
	}
}

func TestValidate_AcceptsWellFormedPolicy(t *testing.T) {
	if err := Validate(validPolicy()); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_RejectsMalformedPolicies(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ast.Policy)
		wantMsg string
	}{
		{"nil conditions", func(p *ast.Policy) { p.Conditions = nil }, "condition tree"},
		{"empty id", func(p *ast.Policy) { p.ID = "" }, "id cannot be empty"},
		{"empty tenant", func(p *ast.Policy) { p.TenantID = "" }, "tenant id"},
		{"empty domain", func(p *ast.Policy) { p.Domain = "" }, "domain cannot be empty"},
		{"unknown mode", func(p *ast.Policy) { p.Mode = "advisory" }, "unknown mode"},
		{"unknown polarity", func(p *ast.Policy) { p.Polarity = "inverted" }, "unknown polarity"},
		{"unknown severity", func(p *ast.Policy) { p.Severity = "catastrophic" }, "unknown severity"},
		{"zero version", func(p *ast.Policy) { p.Version = 0 }, "version must be >= 1"},
		{
			"unknown operator",
			func(p *ast.Policy) { p.Conditions.Operator = "sounds_like" },
			"unknown operator",
		},
		{
			"leaf without field",
			func(p *ast.Policy) { p.Conditions.Field = "" },
			"field cannot be empty",
		},
		{
			"leaf without operand",
			func(p *ast.Policy) { p.Conditions.ValueField = "" },
			"value or value_field",
		},
		{
			"leaf with both operands",
			func(p *ast.Policy) { p.Conditions.Value = 65 },
			"both value and value_field",
		},
		{
			"leaf with children",
			func(p *ast.Policy) {
				p.Conditions.Children = []*ast.ConditionNode{{Kind: ast.KindLeaf}}
			},
			"leaf node cannot have children",
		},
		{
			"empty all",
			func(p *ast.Policy) { p.Conditions = &ast.ConditionNode{Kind: ast.KindAll} },
			"at least one child",
		},
		{
			"not with two children",
			func(p *ast.Policy) {
				child := p.Conditions
				p.Conditions = &ast.ConditionNode{Kind: ast.KindNot, Children: []*ast.ConditionNode{child, child}}
			},
			"exactly one child",
		},
		{
			"unknown node kind",
			func(p *ast.Policy) { p.Conditions = &ast.ConditionNode{Kind: "xor"} },
			"unknown node kind",
		},
		{
			"in with scalar operand",
			func(p *ast.Policy) {
				p.Conditions = &ast.ConditionNode{Kind: ast.KindLeaf, Field: "status", Operator: ast.OperatorIn, Value: "idle"}
			},
			"requires a list operand",
		},
		{
			"within_range with one bound",
			func(p *ast.Policy) {
				p.Conditions = &ast.ConditionNode{Kind: ast.KindLeaf, Field: "speed", Operator: ast.OperatorWithinRange, Value: []any{10}}
			},
			"[min, max]",
		},
		{
			"matches with invalid pattern",
			func(p *ast.Policy) {
				p.Conditions = &ast.ConditionNode{Kind: ast.KindLeaf, Field: "status", Operator: ast.OperatorMatches, Value: "(["}
			},
			"invalid pattern",
		},
		{
			"action without type",
			func(p *ast.Policy) { p.Actions = []ast.Action{{}} },
			"type cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPolicy()
			tt.mutate(p)

			err := Validate(p)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() = %q, want message containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_RejectsOverDeepTree(t *testing.T) {
	node := &ast.ConditionNode{Kind: ast.KindLeaf, Field: "speed", Operator: ast.OperatorGreaterThan, Value: 0}
	for i := 0; i < MaxTreeDepth+5; i++ {
		node = &ast.ConditionNode{Kind: ast.KindNot, Children: []*ast.ConditionNode{node}}
	}

	p := validPolicy()
	p.Conditions = node

	err := Validate(p)
	if err == nil {
		t.Fatal("Validate() = nil, want depth error")
	}
	if !strings.Contains(err.Error(), "max depth") {
		t.Errorf("Validate() = %q, want depth error", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	p := validPolicy()
	p.ID = ""
	p.Mode = "advisory"
	p.Conditions = nil

	err := Validate(p)
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Validate() = %T, want *ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("len(Errors) = %d, want 3: %v", len(verr.Errors), verr.Errors)
	}
}
