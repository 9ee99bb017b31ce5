// Package storage provides persistence backends for session logs.
//
// A session log is an ordered list of raw JSON lines; all encoding lives in
// the parent package. Three backends implement the Log interface: FileLog
// (newline-delimited files), PostgresLog (pgx), and SQLLog (database/sql
// with a Postgres-compatible driver).
package storage
