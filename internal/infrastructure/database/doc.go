// Package database provides SQLite connectivity for the fleet connector.
//
// The connector uses SQLite for one purpose: the entity state journal, a
// diagnostics log of entity state updates. Fleet state is never restored
// from it - the source of truth for the fleet is always the last retained
// configuration message on the broker.
//
// The package manages the connection lifecycle (WAL mode, busy timeout,
// single-writer pool settings) and an inline, transactional migration runner
// keyed by a schema_migrations table.
package database
