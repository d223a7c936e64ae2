// Package store provides SQLite-backed durable storage for nodeplay runs.
//
// The store keeps:
//   - Scripts: exported graphs keyed by content hash, plus named tags
//   - Runs: one row per engine Start, tied to the script it ran
//   - Trace events: every observable step of a run, append-only
//
// # Critical Patterns
//
// Content-Addressed Scripts
//   - hash = ir.ScriptHash(graph), computed over canonical JSON
//   - Saving the same graph twice stores one row; a name tag moves to the
//     latest hash
//
// Logical Ordering
//   - Trace rows are keyed (run_id, seq) and always read ORDER BY seq ASC
//   - Wall time is never stored, so a replayed run compares row for row
//
// Idempotent Writes
//   - Every insert is ON CONFLICT DO NOTHING; re-recording an event with
//     the same (run_id, seq) is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
