// Package warden is the service facade over policy evaluation and
// enforcement. External callers submit events, record acknowledgments, work
// violations and pending approvals through their lifecycle, and export the
// audit trail; no other write path reaches evaluation.
package warden
