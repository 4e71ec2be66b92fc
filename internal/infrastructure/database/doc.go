// Package database manages the SQLite connection for Steward Core.
//
// It owns connection setup (WAL mode, busy timeout, foreign keys), the
// embedded migration runner, and health checks. Repositories in the domain
// packages receive the underlying *sql.DB; this package never contains
// domain-level queries.
//
// SQLite is a deliberate fit for a single-owner vessel deployment: one
// writer process, local durability, and no external database service to
// keep alive at sea.
package database
