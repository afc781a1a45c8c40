package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fleetgrid/warden/pkg/policy/ast"
	"fleetgrid/warden/pkg/policy/store"
)

const singlePolicyYAML = `
id: pol-speed
tenant_id: tenant-a
name: speed over limit
domain: safety
mode: monitor
polarity: prohibition
severity: high
active: true
conditions:
  kind: leaf
  field: speed
  operator: greater_than
  value: 65
`

const policyListYAML = `
policies:
  - id: pol-hazmat
    tenant_id: tenant-a
    name: hazmat without certification
    domain: safety
    mode: human_in_loop
    polarity: prohibition
    severity: critical
    active: true
    conditions:
      kind: all
      children:
        - kind: leaf
          field: cargo_class
          operator: equals
          value: hazmat
        - kind: not
          children:
            - kind: leaf
              field: driver_certified
              operator: equals
              value: true
  - id: pol-rest
    tenant_id: tenant-a
    name: rest period compliance
    domain: safety
    mode: monitor
    polarity: compliance
    severity: medium
    active: true
    conditions:
      kind: leaf
      field: hours_since_rest
      operator: less_or_equal
      value: 8
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSource_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "speed.yaml", singlePolicyYAML)
	writeFile(t, dir, "fleet.yml", policyListYAML)
	writeFile(t, dir, "notes.txt", "not a policy")
	writeFile(t, dir, "broken.yaml", "{{ not yaml")

	src := NewFileSource(dir)
	policies, err := src.LoadPolicies(context.Background())
	if err != nil {
		t.Fatalf("LoadPolicies() = %v", err)
	}
	if len(policies) != 3 {
		t.Fatalf("got %d policies, want 3", len(policies))
	}

	byID := make(map[string]*ast.Policy)
	for _, p := range policies {
		byID[p.ID] = p
	}
	if byID["pol-speed"] == nil || byID["pol-hazmat"] == nil || byID["pol-rest"] == nil {
		t.Fatalf("missing policies: %v", byID)
	}
	if byID["pol-hazmat"].Conditions.Kind != ast.KindAll {
		t.Errorf("hazmat root kind = %s", byID["pol-hazmat"].Conditions.Kind)
	}
	if byID["pol-speed"].Conditions.Operator != ast.OperatorGreaterThan {
		t.Errorf("speed operator = %s", byID["pol-speed"].Conditions.Operator)
	}
}

func TestFileSource_MissingPath(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope"))
	if _, err := src.LoadPolicies(context.Background()); err == nil {
		t.Fatal("LoadPolicies() = nil, want error")
	}
}

func TestSync_SkipsUnchangedPolicies(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "speed.yaml", singlePolicyYAML)

	st, err := store.New(ctx, store.NewMemoryBackend())
	if err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(dir)

	n, err := Sync(ctx, src, st)
	if err != nil {
		t.Fatalf("Sync() = %v", err)
	}
	if n != 1 {
		t.Fatalf("first sync wrote %d, want 1", n)
	}

	// Reloading identical content writes nothing.
	n, err = Sync(ctx, src, st)
	if err != nil {
		t.Fatalf("Sync() = %v", err)
	}
	if n != 0 {
		t.Errorf("second sync wrote %d, want 0", n)
	}

	// A content change lands as a new version.
	changed := strings.Replace(singlePolicyYAML, "value: 65", "value: 70", 1)
	writeFile(t, dir, "speed.yaml", changed)

	n, err = Sync(ctx, src, st)
	if err != nil {
		t.Fatalf("Sync() = %v", err)
	}
	if n != 1 {
		t.Fatalf("third sync wrote %d, want 1", n)
	}
	p, _ := st.Get("tenant-a", "pol-speed")
	if p.Version != 2 {
		t.Errorf("Version = %d, want 2", p.Version)
	}
}

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.stop()

	var fired atomic.Int32
	for i := 0; i < 10; i++ {
		d.trigger(func() { fired.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)

	var fired atomic.Int32
	d.trigger(func() { fired.Add(1) })
	d.stop()

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("callback fired %d times after stop", got)
	}
}
