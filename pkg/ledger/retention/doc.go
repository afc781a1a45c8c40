// Package retention prunes old ledger records on a cron schedule.
//
// Retention is disabled by default and never touches open violations or
// pending executions: the audit trail for anything still in flight is
// sacrosanct, whatever its age.
package retention
