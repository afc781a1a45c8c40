// Package export renders ledger records for compliance reporting, as a
// JSON audit bundle or flat CSV tables.
package export
