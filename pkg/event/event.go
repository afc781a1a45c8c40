package event

import "time"

// Event is a typed, domain-tagged fact submitted by an external hub component
// (vehicle status, driver behavior, maintenance schedule, dispatch request).
// Events are transient: the engine never persists them, the ledger references
// them by ID only.
type Event struct {
	// ID uniquely identifies the event. Assigned by the submitting hub;
	// the facade fills in a UUID when left empty.
	ID string `json:"id" yaml:"id"`

	// TenantID scopes the event to a tenant. Every policy lookup and every
	// ledger write derived from this event carries the same tenant.
	TenantID string `json:"tenant_id" yaml:"tenant_id"`

	// Domain selects which policies apply (e.g. "safety", "maintenance",
	// "dispatch").
	Domain string `json:"domain" yaml:"domain"`

	// EntityID identifies the subject of the event (vehicle, driver, route).
	EntityID string `json:"entity_id" yaml:"entity_id"`

	// Fields holds the scalar facts conditions evaluate against.
	// Values are strings, bools, or numerics; nested structures are not
	// supported by the condition evaluator.
	Fields map[string]any `json:"fields" yaml:"fields"`

	// Timestamp is when the fact was observed.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Field returns the named field value and whether it is present.
func (e *Event) Field(name string) (any, bool) {
	if e == nil || e.Fields == nil {
		return nil, false
	}
	v, ok := e.Fields[name]
	return v, ok
}
