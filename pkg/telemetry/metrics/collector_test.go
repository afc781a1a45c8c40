package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordsAndServes(t *testing.T) {
	c := NewCollector(&Config{Enabled: true}, nil)

	c.RecordEvaluation("tenant-a", "safety", 2*time.Millisecond)
	c.RecordVerdict("tenant-a", "satisfied")
	c.RecordVerdict("tenant-a", "degraded")
	c.RecordViolation("tenant-a", "high")
	c.RecordHook("safety", "escalated", 50*time.Millisecond)
	c.RecordLedgerWrite("verdict", nil)
	c.RecordPolicyReload()

	if got := testutil.ToFloat64(c.evaluationsTotal.WithLabelValues("tenant-a", "safety")); got != 1 {
		t.Errorf("evaluations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.verdictsTotal.WithLabelValues("tenant-a", "degraded")); got != 1 {
		t.Errorf("verdicts_total{degraded} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.hookOutcomesTotal.WithLabelValues("safety", "escalated")); got != 1 {
		t.Errorf("hook_outcomes_total = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "fleetgrid_warden_evaluations_total") {
		t.Error("metrics endpoint missing evaluations counter")
	}
	if !strings.Contains(body, "fleetgrid_warden_violations_total") {
		t.Error("metrics endpoint missing violations counter")
	}
}

func TestCollector_DisabledIsNoOp(t *testing.T) {
	c := NewCollector(&Config{Enabled: false}, nil)

	c.RecordEvaluation("tenant-a", "safety", time.Millisecond)
	c.RecordLedgerWrite("verdict", nil)

	if got := testutil.ToFloat64(c.evaluationsTotal.WithLabelValues("tenant-a", "safety")); got != 0 {
		t.Errorf("disabled collector recorded %v evaluations", got)
	}
}
