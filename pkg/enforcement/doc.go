// Package enforcement turns violating verdicts into ledger records and,
// where the policy mode allows, into actions against fleet systems.
//
// The dispatcher branches on the policy's operating mode: monitor records
// only, human-in-loop parks actions behind approval, autonomous calls the
// registered domain hook under a timeout. Everything that is not a clean
// allowed or blocked answer from a hook (escalation, error, timeout,
// missing registration) lands on the approval path. There is no silent
// allow.
package enforcement
