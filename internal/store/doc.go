// Package store provides SQLite-backed durable storage for history records.
//
// The store is a single table keyed by id with a covering index for the
// recent-window query:
//
//	histories(id TEXT PRIMARY KEY, host, topic, message, created_at INTEGER)
//	idx_histories_recent(created_at DESC, id DESC)
//
// created_at is stored as unix milliseconds (UTC).
//
// # Deterministic Query Results
//
// Every listing uses ORDER BY created_at DESC, id DESC. Ids come from a
// history.IDGenerator (UUIDv7 by default), so ties resolve to the most recently
// inserted record first.
//
// # Database Configuration
//
//   - WAL mode: readers are not blocked by the writer
//   - synchronous=FULL: a committed insert or delete survives power loss
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - one pooled connection: statements are serialized, each one atomic
//
// Every operation is a single statement, so there is no multi-statement
// transaction that could leave a partial write visible.
package store
