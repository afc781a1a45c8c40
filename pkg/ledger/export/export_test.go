package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/policy/ast"
)

func sampleBundle() *Bundle {
	opened := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	resolved := opened.Add(2 * time.Hour)
	return &Bundle{
		TenantID:    "tenant-a",
		From:        opened.Add(-time.Hour),
		To:          opened.Add(24 * time.Hour),
		GeneratedAt: opened.Add(48 * time.Hour),
		Verdicts: []*ledger.Verdict{
			{ID: "verdict-1", TenantID: "tenant-a", PolicyID: "pol-speed", Satisfied: true, Confidence: 1, EvaluatedAt: opened},
		},
		Violations: []*ledger.Violation{
			{
				ID: "vio-1", TenantID: "tenant-a", VerdictID: "verdict-1", PolicyID: "pol-speed",
				PolicyVersion: 2, EventID: "evt-1", EntityID: "vehicle-7", Domain: "safety",
				Severity: ast.SeverityHigh, Status: ledger.StatusResolved,
				OpenedAt: opened, ResolvedAt: &resolved, ResolvedBy: "supervisor-2", Resolution: "driver retrained",
			},
		},
		Executions: []*ledger.Execution{
			{
				ID: "exec-1", TenantID: "tenant-a", ViolationID: "vio-1", PolicyID: "pol-speed",
				Action: ast.Action{Type: "limit_speed"}, Outcome: ledger.OutcomeAllowed,
				ExecutedBy: "system", ExecutedAt: opened,
			},
		},
	}
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(context.Background(), sampleBundle(), &buf); err != nil {
		t.Fatalf("Export() = %v", err)
	}

	var got Bundle
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.TenantID != "tenant-a" || len(got.Violations) != 1 || len(got.Executions) != 1 {
		t.Errorf("bundle = %+v", got)
	}
	if got.Violations[0].Resolution != "driver retrained" {
		t.Errorf("resolution = %q", got.Violations[0].Resolution)
	}
}

func TestJSONExporter_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(true).Export(context.Background(), sampleBundle(), &buf); err != nil {
		t.Fatalf("Export() = %v", err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("pretty output not indented")
	}
}

func TestCSVExporter_Violations(t *testing.T) {
	var buf bytes.Buffer
	b := sampleBundle()
	if err := NewCSVExporter().ExportViolations(context.Background(), b.Violations, &buf); err != nil {
		t.Fatalf("ExportViolations() = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if rows[0][0] != "id" || rows[1][0] != "vio-1" {
		t.Errorf("rows = %v", rows)
	}
	// Resolved timestamp present, acknowledged empty.
	header := rows[0]
	byName := map[string]string{}
	for i, h := range header {
		byName[h] = rows[1][i]
	}
	if byName["acknowledged_at"] != "" || byName["resolved_at"] == "" {
		t.Errorf("timestamps = ack %q resolved %q", byName["acknowledged_at"], byName["resolved_at"])
	}
}

func TestCSVExporter_Executions(t *testing.T) {
	var buf bytes.Buffer
	b := sampleBundle()
	if err := NewCSVExporter().ExportExecutions(context.Background(), b.Executions, &buf); err != nil {
		t.Fatalf("ExportExecutions() = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	if len(rows) != 2 || rows[1][3] != "limit_speed" {
		t.Errorf("rows = %v", rows)
	}
}
