package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"fleetgrid/warden/pkg/ledger"
)

// CSVExporter writes flat CSV tables for spreadsheet-driven compliance
// review. Violations and executions export separately since their columns
// do not line up.
type CSVExporter struct{}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

var violationHeader = []string{
	"id", "policy_id", "policy_version", "event_id", "entity_id", "domain",
	"severity", "status", "opened_at", "acknowledged_at", "resolved_at",
	"resolved_by", "resolution",
}

// ExportViolations writes one CSV row per violation.
func (e *CSVExporter) ExportViolations(ctx context.Context, violations []*ledger.Violation, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(violationHeader); err != nil {
		return &Error{Format: "csv", Records: len(violations), Err: err}
	}

	for i, v := range violations {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			v.ID, v.PolicyID, strconv.Itoa(v.PolicyVersion), v.EventID, v.EntityID, v.Domain,
			string(v.Severity), string(v.Status), formatTime(v.OpenedAt),
			formatTimePtr(v.AcknowledgedAt), formatTimePtr(v.ResolvedAt),
			v.ResolvedBy, v.Resolution,
		}
		if err := cw.Write(row); err != nil {
			return &Error{Format: "csv", Records: i, Err: err}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return &Error{Format: "csv", Records: len(violations), Err: err}
	}
	return nil
}

var executionHeader = []string{
	"id", "violation_id", "policy_id", "action_type", "action_params",
	"outcome", "executed_by", "executed_at", "decided_by", "decided_at", "reason",
}

// ExportExecutions writes one CSV row per execution.
func (e *CSVExporter) ExportExecutions(ctx context.Context, executions []*ledger.Execution, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(executionHeader); err != nil {
		return &Error{Format: "csv", Records: len(executions), Err: err}
	}

	for i, x := range executions {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			x.ID, x.ViolationID, x.PolicyID, x.Action.Type, fmt.Sprintf("%v", x.Action.Params),
			string(x.Outcome), x.ExecutedBy, formatTime(x.ExecutedAt),
			x.DecidedBy, formatTimePtr(x.DecidedAt), x.Reason,
		}
		if err := cw.Write(row); err != nil {
			return &Error{Format: "csv", Records: i, Err: err}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return &Error{Format: "csv", Records: len(executions), Err: err}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
