package ast

import "time"

// Mode is the per-policy enforcement mode.
type Mode string

const (
	// ModeMonitor records violations only; no enforcement action runs.
	ModeMonitor Mode = "monitor"

	// ModeHumanInLoop records the violation and parks the action behind an
	// approval request; nothing is applied until a human decides.
	ModeHumanInLoop Mode = "human_in_loop"

	// ModeAutonomous invokes the domain enforcement hook synchronously.
	ModeAutonomous Mode = "autonomous"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeMonitor || m == ModeHumanInLoop || m == ModeAutonomous
}

// Polarity controls how a satisfied condition tree is interpreted.
type Polarity string

const (
	// PolarityCompliance: the tree states what must hold; a satisfied tree
	// is the healthy state and a violation is recorded when it is NOT
	// satisfied.
	PolarityCompliance Polarity = "compliance"

	// PolarityProhibition: the tree states what must not hold; a satisfied
	// tree IS the violation. This is the default for fleet rules phrased as
	// triggers ("speed exceeds limit").
	PolarityProhibition Polarity = "prohibition"
)

// Valid reports whether p is a known polarity.
func (p Polarity) Valid() bool {
	return p == PolarityCompliance || p == PolarityProhibition
}

// Severity is policy metadata carried onto violations. Independent of the
// evaluator's confidence score.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Action is one enforcement step taken when a policy's tree evaluates true.
// Types are domain-specific ("limit_speed", "ground_vehicle",
// "schedule_service", "hold_dispatch"); hooks interpret the params.
type Action struct {
	Type   string         `json:"type" yaml:"type"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Policy is a versioned, tenant-scoped rule: a condition tree plus the
// ordered actions to apply when it fires, under a given enforcement mode.
//
// Policies are immutable once written. Authoring creates new versions;
// activate/deactivate toggles the Active flag. Policies are never physically
// deleted so historical verdicts stay attributable.
type Policy struct {
	ID       string `json:"id" yaml:"id"`
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
	Name     string `json:"name" yaml:"name"`

	// Domain binds the policy to one event domain ("safety", "maintenance",
	// "dispatch", ...). Only events of the same domain are evaluated
	// against it.
	Domain string `json:"domain" yaml:"domain"`

	Mode     Mode     `json:"mode" yaml:"mode"`
	Polarity Polarity `json:"polarity" yaml:"polarity"`
	Severity Severity `json:"severity" yaml:"severity"`

	// Version increases monotonically per policy ID. Verdicts and
	// acknowledgments pin the version they were produced against.
	Version int  `json:"version" yaml:"version"`
	Active  bool `json:"active" yaml:"active"`

	Conditions *ConditionNode `json:"conditions" yaml:"conditions"`
	Actions    []Action       `json:"actions,omitempty" yaml:"actions,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// IsViolationWhenSatisfied returns true when a satisfied condition tree
// constitutes a violation under this policy's polarity.
func (p *Policy) IsViolationWhenSatisfied() bool {
	return p.Polarity != PolarityCompliance
}
