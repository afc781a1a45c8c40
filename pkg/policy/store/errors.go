package store

import "fmt"

// NotFoundError is returned when a policy id has no versions within the
// caller's tenant scope.
type NotFoundError struct {
	TenantID string
	PolicyID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("policy store: policy %s not found for tenant %s", e.PolicyID, e.TenantID)
}

// BackendError wraps a persistence failure.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("policy store: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
