// Package store keeps a SQLite log of compilation runs.
//
// Each row records one pipeline run: the program's canonical document and
// its content hash, the dimensions used, and, when parameter values were
// supplied, the numeric cone data and its hash. Rows are append-only and
// ordered by seq, an autoincrement counter, so listings never depend on
// wall-clock time.
//
// Documents are stored as RFC 8785 canonical JSON, the same bytes that
// ir.ContentHash hashes. Rows written by a compiler with a different
// major format version are reported as incompatible and are never reused.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
