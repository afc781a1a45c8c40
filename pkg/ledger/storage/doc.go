// Package storage provides ledger.Storage backends.
//
// The SQLite backend (mattn/go-sqlite3, WAL mode) is the durable audit
// trail; the memory backend serves tests and development. Both enforce the
// same compare-and-swap semantics for violation status changes and
// execution approval decisions.
package storage
