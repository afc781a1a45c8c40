package enforcement

import (
	"fmt"
	"time"
)

// HookTimeoutError is returned when a hook did not answer within the
// configured deadline. The dispatcher treats it as an escalation, never as
// an allow.
type HookTimeoutError struct {
	Domain  string
	Timeout time.Duration
}

func (e *HookTimeoutError) Error() string {
	return fmt.Sprintf("enforcement: hook for domain %q timed out after %s", e.Domain, e.Timeout)
}

// HookUnavailableError is returned when no hook is registered for a domain
// an autonomous policy needs. Also treated as an escalation.
type HookUnavailableError struct {
	Domain string
}

func (e *HookUnavailableError) Error() string {
	return fmt.Sprintf("enforcement: no hook registered for domain %q", e.Domain)
}
