// Package queue is the master's ledger of try jobs taken from its spool,
// persisted in SQLite.
//
// Every spool entry the master sweeps ends up as one row keyed by its spool
// name: received when it decoded, rejected (with the reason) when it did not.
// Inserts ignore a name that is already present, so a sweep interrupted
// between recording and claiming an entry can safely run again.
//
// Schema changes bump schemaVersion; operators delete state.db to adopt a new
// schema.
package queue
