// Package database manages the SQLite connection and schema migrations.
//
// The registry relies on SQLite transactions for its atomicity guarantees
// (one-time registration, batch reading attachment, cascade delete), so the
// connection is opened with foreign keys enforced and a single-writer pool.
package database
