// Package store provides the SQLite-backed object store that reconciled
// entities persist into.
//
// Objects are rows of a single objects table: an id, the entity name, the
// scalar fields as canonical JSON, createdAt, updatedAt and the seq of the
// commit that last wrote them. Relations are rows of a relations table
// ordered by position, with foreign keys on both ends.
//
// # Transactions
//
// Store.Begin returns a Tx, the context reconciliation runs against. A Tx
// is an identity map: FindOne, Get and Insert all return the same *Object
// for the same id, so in-memory edits are visible to later lookups before
// anything is written. Commit writes objects, then relations, in one
// SQLite transaction.
//
// # Logical time
//
// Every commit that changes something takes the next seq from a logical
// clock resumed from the commits table on Open. Change sets are published
// in seq order to subscribers (Subscribe) and live queries (Watch).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Both github.com/mattn/go-sqlite3 ("sqlite3", the default) and the pure
// Go modernc.org/sqlite ("sqlite") drivers are supported.
package store
