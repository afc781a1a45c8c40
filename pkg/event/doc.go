// Package event defines the fleet-operation event type evaluated by the
// policy engine. Events are the only evaluation input: a tenant- and
// domain-tagged entity with a flat map of scalar fields.
package event
