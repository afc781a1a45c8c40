package export

import (
	"fmt"
	"time"

	"fleetgrid/warden/pkg/ledger"
)

// Bundle is one compliance audit export: every decision record for a
// tenant over a time window.
type Bundle struct {
	TenantID    string    `json:"tenant_id"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	GeneratedAt time.Time `json:"generated_at"`

	Verdicts   []*ledger.Verdict   `json:"verdicts"`
	Violations []*ledger.Violation `json:"violations"`
	Executions []*ledger.Execution `json:"executions"`
}

// Error wraps an export failure.
type Error struct {
	Format  string
	Records int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s (%d records): %v", e.Format, e.Records, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
