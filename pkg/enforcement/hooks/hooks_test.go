package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"fleetgrid/warden/pkg/ack"
	"fleetgrid/warden/pkg/enforcement"
	"fleetgrid/warden/pkg/event"
	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/ledger/storage"
	"fleetgrid/warden/pkg/policy/ast"
)

func hookContext(domain string, severity ast.Severity, fields map[string]any) *enforcement.Context {
	policy := &ast.Policy{
		ID:       "pol-1",
		TenantID: "tenant-a",
		Domain:   domain,
		Mode:     ast.ModeAutonomous,
		Polarity: ast.PolarityProhibition,
		Severity: severity,
		Version:  1,
	}
	return &enforcement.Context{
		Event: &event.Event{
			ID:       "evt-1",
			TenantID: "tenant-a",
			Domain:   domain,
			EntityID: "vehicle-7",
			Fields:   fields,
		},
		Policy: policy,
		Verdict: &ledger.Verdict{
			ID: uuid.NewString(), TenantID: "tenant-a", PolicyID: "pol-1",
			Satisfied: true, Confidence: 1.0,
		},
		Violation: &ledger.Violation{ID: uuid.NewString(), TenantID: "tenant-a"},
	}
}

func TestSafetyHook_Outcomes(t *testing.T) {
	h := NewSafetyHook()
	ctx := context.Background()

	tests := []struct {
		name     string
		action   string
		severity ast.Severity
		want     ledger.Outcome
	}{
		{"limit speed", "limit_speed", ast.SeverityHigh, ledger.OutcomeAllowed},
		{"alert driver", "alert_driver", ast.SeverityLow, ledger.OutcomeAllowed},
		{"disable vehicle escalates", "disable_vehicle", ast.SeverityHigh, ledger.OutcomeEscalated},
		{"critical always escalates", "limit_speed", ast.SeverityCritical, ledger.OutcomeEscalated},
		{"unknown action escalates", "eject_cargo", ast.SeverityLow, ledger.OutcomeEscalated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Apply(ctx, ast.Action{Type: tt.action}, hookContext("safety", tt.severity, nil))
			if err != nil {
				t.Fatalf("Apply() = %v", err)
			}
			if got != tt.want {
				t.Errorf("Apply(%s) = %s, want %s", tt.action, got, tt.want)
			}
		})
	}
}

func TestMaintenanceHook_RepeatOffenderEscalates(t *testing.T) {
	h := NewMaintenanceHook()
	ctx := context.Background()
	st := storage.NewMemoryStorage()

	hctx := hookContext("maintenance", ast.SeverityMedium, nil)
	hctx.Ledger = st

	got, err := h.Apply(ctx, ast.Action{Type: "schedule_service"}, hctx)
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}
	if got != ledger.OutcomeAllowed {
		t.Errorf("clean record = %s, want allowed", got)
	}

	for i := 0; i < repeatOffenseThreshold+1; i++ {
		st.AppendViolation(ctx, &ledger.Violation{
			ID: uuid.NewString(), TenantID: "tenant-a", EntityID: "vehicle-7",
			Domain: "maintenance", Severity: ast.SeverityMedium,
			Status: ledger.StatusOpen, OpenedAt: time.Now().UTC(),
		})
	}

	got, err = h.Apply(ctx, ast.Action{Type: "schedule_service"}, hctx)
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}
	if got != ledger.OutcomeEscalated {
		t.Errorf("repeat offender = %s, want escalated", got)
	}
}

func TestDispatchHook_RequiresAcknowledgment(t *testing.T) {
	h := NewDispatchHook()
	ctx := context.Background()
	tracker := ack.NewTracker(ack.NewMemoryStore())

	hctx := hookContext("dispatch", ast.SeverityMedium, map[string]any{"driver_id": "driver-9"})
	hctx.Acks = tracker

	// Unacknowledged policy: escalate rather than enforce.
	got, err := h.Apply(ctx, ast.Action{Type: "hold_dispatch"}, hctx)
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}
	if got != ledger.OutcomeEscalated {
		t.Errorf("unacknowledged = %s, want escalated", got)
	}

	tracker.Record(ctx, "tenant-a", "pol-1", 1, "driver-9", []byte("sig"))

	got, _ = h.Apply(ctx, ast.Action{Type: "hold_dispatch"}, hctx)
	if got != ledger.OutcomeBlocked {
		t.Errorf("acknowledged hold_dispatch = %s, want blocked", got)
	}

	got, _ = h.Apply(ctx, ast.Action{Type: "reassign_route"}, hctx)
	if got != ledger.OutcomeAllowed {
		t.Errorf("reassign_route = %s, want allowed", got)
	}
}

func TestDispatchHook_NoDriverEscalates(t *testing.T) {
	h := NewDispatchHook()
	got, err := h.Apply(context.Background(), ast.Action{Type: "hold_dispatch"},
		hookContext("dispatch", ast.SeverityMedium, nil))
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}
	if got != ledger.OutcomeEscalated {
		t.Errorf("no driver = %s, want escalated", got)
	}
}
