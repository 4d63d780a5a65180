// Package store provides SQLite-backed persistence for serialized IR
// snapshots.
//
// Each IR is stored as one snapshot row in irs, keyed by the IR's UUID and
// holding its deterministic CBOR encoding plus the content digest of that
// encoding. The modules table is a denormalised catalogue of the modules in
// every snapshot, so modules can be found by name without decoding.
//
// # Snapshot Identity
//
// SaveIR is idempotent per (UUID, digest): saving an unchanged IR is a
// no-op, saving a changed IR with the same UUID replaces the snapshot and
// its catalogue rows in one transaction.
//
// # Deterministic Query Results
//
// Every listing orders by identifier (COLLATE BINARY) and then by module
// position, so results do not depend on insertion history.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a snapshot cascades to its modules
package store
