// Package store provides SQLite-backed durable storage for daybook.
//
// One database file holds everything:
//   - Entries: journal entries with optional mood, pinning, and tags
//   - Tags: shared tag rows, linked through entry_tags
//   - Reminders: scheduled nudges attached to entries
//   - Sessions: web session rows managed by internal/session
//
// The store persists title and body verbatim; encryption happens a
// layer up in internal/journal and the columns may hold either
// plaintext or at-rest envelopes.
//
// # Schema Lifecycle
//
// Open runs Manager.Ensure on every start. Base tables are created
// idempotently from the embedded schema.sql; columns added after the
// first release are backfilled with ALTER TABLE; an obsolete UNIQUE
// constraint on entries.entry_date is removed by a shadow-table
// rebuild. Only a failure to create the base schema aborts startup -
// upgrade steps log a warning and leave the database as it was.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The pool is capped at a single connection; SQLite serializes writers
// anyway, and one connection keeps transactions and PRAGMA scopes
// predictable.
package store
