// Package store provides SQLite-backed persistence for slots and swap requests.
//
// Tables:
//   - events: calendar slots, one optimistic version counter per row
//   - swap_requests: proposed exchanges, one version counter per row
//   - swap_locks: event -> pending request index, one row per SWAP_PENDING slot
//   - journal: append-only log of committed operations
//
// # Writes
//
// Every mutation goes through Commit, which applies a Batch of conditional
// writes inside one transaction. Each UPDATE and DELETE names the version
// and status the caller read; if any statement matches zero rows, or a
// swap_locks key collides, the transaction is rolled back and Commit
// returns an error wrapping ErrPreconditionFailed. Nothing from a failed
// batch is ever visible.
//
// # Ordering
//
// Slot queries: ORDER BY start_time ASC, id ASC COLLATE BINARY.
// Request queries: ORDER BY created_at DESC, rowid DESC (insertion order
// breaks ties between requests created in the same millisecond).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
