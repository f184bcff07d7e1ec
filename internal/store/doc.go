// Package store provides SQLite-backed storage for extraction runs.
//
// The schema has three tables:
//   - runs: one row per extraction, with its seed and options
//   - sequences: one row per emitted history and its provenance
//   - events: the ordered entries of each history
//
// Sequence IDs are content hashes (ir.SequenceID) of the run, the entry
// method and the history, so writing the same history twice in a run is a
// no-op. Reads are ordered by seq, then id COLLATE BINARY, so results are
// identical across runs of the same database.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
