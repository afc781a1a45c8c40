package ledger

import (
	"context"
	"time"

	"fleetgrid/warden/pkg/policy/ast"
	"fleetgrid/warden/pkg/policy/evaluator"
)

// Verdict is the immutable result of evaluating one policy version against
// one event. Every evaluation emits a verdict, satisfied or not; the
// non-satisfied ones are retained for observability rather than discarded.
type Verdict struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	PolicyID      string `json:"policy_id"`
	PolicyVersion int    `json:"policy_version"`

	// EventID references the transient triggering event; the event itself
	// is never persisted.
	EventID  string `json:"event_id"`
	EntityID string `json:"entity_id"`
	Domain   string `json:"domain"`

	Satisfied  bool    `json:"satisfied"`
	Confidence float64 `json:"confidence"`

	// Degraded marks a verdict produced from a failed evaluation (e.g. a
	// corrupt persisted tree). Degraded verdicts are always
	// satisfied=false, confidence=0.
	Degraded bool `json:"degraded,omitempty"`

	TriggeredConditions []evaluator.TriggeredCondition `json:"triggered_conditions,omitempty"`

	EvaluatedAt time.Time `json:"evaluated_at"`
}

// ViolationStatus is the lifecycle state of a violation.
type ViolationStatus string

const (
	StatusOpen         ViolationStatus = "open"
	StatusAcknowledged ViolationStatus = "acknowledged"
	StatusResolved     ViolationStatus = "resolved"
)

// ValidTransition reports whether from -> to is a legal status change.
// The only legal paths are open -> acknowledged -> resolved and the direct
// open -> resolved used by system-initiated resolutions.
func ValidTransition(from, to ViolationStatus) bool {
	switch {
	case from == StatusOpen && to == StatusAcknowledged:
		return true
	case from == StatusOpen && to == StatusResolved:
		return true
	case from == StatusAcknowledged && to == StatusResolved:
		return true
	}
	return false
}

// Violation is a verdict interpreted as a compliance breach under its
// policy's polarity. Severity comes from policy metadata, not from the
// evaluator's confidence.
type Violation struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	VerdictID     string `json:"verdict_id"`
	PolicyID      string `json:"policy_id"`
	PolicyVersion int    `json:"policy_version"`
	EventID       string `json:"event_id"`
	EntityID      string `json:"entity_id"`
	Domain        string `json:"domain"`

	Severity ast.Severity    `json:"severity"`
	Status   ViolationStatus `json:"status"`

	// Sequence increases on every status change; it backs optimistic
	// concurrency in storage backends.
	Sequence int64 `json:"sequence"`

	OpenedAt       time.Time  `json:"opened_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	// Resolution is free-form context supplied when the violation is
	// resolved; ResolvedBy is "system" or a user id.
	Resolution string `json:"resolution,omitempty"`
	ResolvedBy string `json:"resolved_by,omitempty"`
}

// Outcome is the result of an enforcement hook run (or deferral).
type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeBlocked Outcome = "blocked"

	// OutcomeEscalated means the hook judged the violation critical and
	// forced it onto the approval path regardless of policy mode.
	OutcomeEscalated Outcome = "escalated"

	// OutcomeApprovalPending parks the action behind a human decision.
	OutcomeApprovalPending Outcome = "approval_pending"
)

// Execution records that an enforcement action ran (or was deferred) for a
// violation. Approval decisions update the existing row; they never create a
// second execution.
type Execution struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	ViolationID string `json:"violation_id"`
	PolicyID    string `json:"policy_id"`

	Action  ast.Action `json:"action"`
	Outcome Outcome    `json:"outcome"`

	// ExecutedBy is "system" for hook-driven outcomes, a user id for
	// approval decisions.
	ExecutedBy string    `json:"executed_by"`
	ExecutedAt time.Time `json:"executed_at"`

	// DecidedBy/DecidedAt are set when a pending approval is decided.
	DecidedBy string     `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`

	// Reason is hook- or approver-supplied context for the outcome.
	Reason string `json:"reason,omitempty"`

	Sequence int64 `json:"sequence"`
}

// Query filters ledger reads. TenantID is mandatory; everything in the
// ledger is tenant-partitioned and no query ever crosses tenants.
type Query struct {
	TenantID string `json:"tenant_id"`

	PolicyID string `json:"policy_id,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
	Domain   string `json:"domain,omitempty"`

	// ViolationID narrows execution queries to one violation's records.
	ViolationID string          `json:"violation_id,omitempty"`
	Status      ViolationStatus `json:"status,omitempty"`
	Severity    ast.Severity    `json:"severity,omitempty"`

	// Time range is inclusive on both ends.
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Storage is the append-only ledger backend. Implementations must be safe
// for concurrent use. Writes are append-only except for the two
// compare-and-swap updates that move a violation through its status
// lifecycle and settle a pending execution.
type Storage interface {
	// AppendVerdict persists a verdict. Verdicts are immutable.
	AppendVerdict(ctx context.Context, v *Verdict) error

	// AppendViolation persists a new open violation.
	AppendViolation(ctx context.Context, v *Violation) error

	// AppendExecution persists a new execution record.
	AppendExecution(ctx context.Context, e *Execution) error

	// GetViolation returns one violation scoped to tenantID.
	GetViolation(ctx context.Context, tenantID, id string) (*Violation, error)

	// GetExecution returns one execution scoped to tenantID.
	GetExecution(ctx context.Context, tenantID, id string) (*Execution, error)

	// TransitionViolation moves a violation from expected status to next,
	// compare-and-swap on (id, expected). Returns
	// ErrConcurrentModification when the row is no longer in the expected
	// status and *InvalidTransitionError when expected -> next is illegal.
	TransitionViolation(ctx context.Context, tenantID, id string, expected, next ViolationStatus, by, resolution string) error

	// DecideExecution settles an approval_pending execution, CAS on the
	// pending outcome. Returns ErrConcurrentModification when the
	// execution is no longer pending.
	DecideExecution(ctx context.Context, tenantID, id string, outcome Outcome, decidedBy, reason string) error

	// ListVerdicts returns verdicts matching the query, newest first.
	ListVerdicts(ctx context.Context, q *Query) ([]*Verdict, error)

	// ListViolations returns violations matching the query, newest first.
	ListViolations(ctx context.Context, q *Query) ([]*Violation, error)

	// ListExecutions returns executions matching the query, newest first.
	ListExecutions(ctx context.Context, q *Query) ([]*Execution, error)

	// Close releases backend resources.
	Close() error
}
