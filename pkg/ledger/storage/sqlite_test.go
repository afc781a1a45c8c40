package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/policy/ast"
	"fleetgrid/warden/pkg/policy/evaluator"
)

func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "ledger.db")
	s, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorage_VerdictRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	v := &ledger.Verdict{
		ID:            "verdict-1",
		TenantID:      "tenant-a",
		PolicyID:      "pol-speed",
		PolicyVersion: 3,
		EventID:       "evt-1",
		EntityID:      "vehicle-7",
		Domain:        "safety",
		Satisfied:     true,
		Confidence:    1.0,
		TriggeredConditions: []evaluator.TriggeredCondition{
			{Field: "speed", Operator: ast.OperatorGreaterThan, Actual: 85.0, Operand: 65.0},
		},
		EvaluatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.AppendVerdict(ctx, v); err != nil {
		t.Fatalf("AppendVerdict() = %v", err)
	}

	out, err := s.ListVerdicts(ctx, &ledger.Query{TenantID: "tenant-a"})
	if err != nil {
		t.Fatalf("ListVerdicts() = %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d verdicts, want 1", len(out))
	}
	got := out[0]
	if got.PolicyVersion != 3 || !got.Satisfied || got.Confidence != 1.0 {
		t.Errorf("verdict = %+v", got)
	}
	if len(got.TriggeredConditions) != 1 || got.TriggeredConditions[0].Field != "speed" {
		t.Errorf("triggered conditions = %+v", got.TriggeredConditions)
	}
}

func TestSQLiteStorage_ViolationCAS(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	if err := s.AppendViolation(ctx, openViolation("vio-1", "tenant-a")); err != nil {
		t.Fatalf("AppendViolation() = %v", err)
	}

	if err := s.TransitionViolation(ctx, "tenant-a", "vio-1", ledger.StatusOpen, ledger.StatusAcknowledged, "driver-9", ""); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	// Stale expectation: the row is already acknowledged.
	err := s.TransitionViolation(ctx, "tenant-a", "vio-1", ledger.StatusOpen, ledger.StatusAcknowledged, "driver-9", "")
	if !errors.Is(err, ledger.ErrConcurrentModification) {
		t.Errorf("stale transition = %v, want ErrConcurrentModification", err)
	}

	// Missing row surfaces as not found, not as a lost race.
	err = s.TransitionViolation(ctx, "tenant-a", "vio-missing", ledger.StatusOpen, ledger.StatusResolved, "system", "")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("missing row = %v, want ErrNotFound", err)
	}

	v, err := s.GetViolation(ctx, "tenant-a", "vio-1")
	if err != nil {
		t.Fatalf("GetViolation() = %v", err)
	}
	if v.Status != ledger.StatusAcknowledged || v.Sequence != 1 {
		t.Errorf("violation = status %s seq %d", v.Status, v.Sequence)
	}
}

func TestSQLiteStorage_ExecutionDecision(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	exec := &ledger.Execution{
		ID:          "exec-1",
		TenantID:    "tenant-a",
		ViolationID: "vio-1",
		PolicyID:    "pol-speed",
		Action:      ast.Action{Type: "limit_speed", Params: map[string]any{"max": 65.0}},
		Outcome:     ledger.OutcomeApprovalPending,
		ExecutedBy:  "system",
		ExecutedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := s.AppendExecution(ctx, exec); err != nil {
		t.Fatalf("AppendExecution() = %v", err)
	}

	if err := s.DecideExecution(ctx, "tenant-a", "exec-1", ledger.OutcomeBlocked, "supervisor-2", "too risky"); err != nil {
		t.Fatalf("DecideExecution() = %v", err)
	}

	got, err := s.GetExecution(ctx, "tenant-a", "exec-1")
	if err != nil {
		t.Fatalf("GetExecution() = %v", err)
	}
	if got.Outcome != ledger.OutcomeBlocked || got.DecidedAt == nil || got.Reason != "too risky" {
		t.Errorf("execution = %+v", got)
	}
	if got.Action.Params["max"] != 65.0 {
		t.Errorf("action params = %+v", got.Action.Params)
	}

	err = s.DecideExecution(ctx, "tenant-a", "exec-1", ledger.OutcomeAllowed, "supervisor-3", "")
	if !errors.Is(err, ledger.ErrConcurrentModification) {
		t.Errorf("double decide = %v, want ErrConcurrentModification", err)
	}
}

func TestSQLiteStorage_ListViolationFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, tenant := range []string{"tenant-a", "tenant-a", "tenant-b"} {
		v := openViolation("vio-"+string(rune('a'+i)), tenant)
		v.OpenedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.AppendViolation(ctx, v); err != nil {
			t.Fatalf("AppendViolation() = %v", err)
		}
	}

	out, err := s.ListViolations(ctx, &ledger.Query{TenantID: "tenant-a"})
	if err != nil {
		t.Fatalf("ListViolations() = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d rows, want 2", len(out))
	}
	if !out[0].OpenedAt.After(out[1].OpenedAt) {
		t.Error("results not newest first")
	}

	out, _ = s.ListViolations(ctx, &ledger.Query{TenantID: "tenant-a", Status: ledger.StatusResolved})
	if len(out) != 0 {
		t.Errorf("status filter returned %d rows, want 0", len(out))
	}
}
