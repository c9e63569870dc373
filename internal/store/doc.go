// Package store provides local persistence for the control client using
// SQLite.
//
// # Architecture
//
// Consumers depend on narrow interfaces:
//
//   - Journal: append-only, dedup-by-id log of applied realtime envelopes
//   - SnapshotCache: last known gateway status, agents and projects
//   - AuditTrail: record of operator mutations and reauthorization checks
//   - SecretStore: encrypted key/value secrets such as the gateway token
//
// SQLiteStore implements all of them in one database file. MockStore is an
// in-memory twin for unit tests.
//
// # Journal
//
// The event_journal table is keyed by event_id. Appends use
// INSERT ... ON CONFLICT(event_id) DO NOTHING, so deduplication is enforced
// by SQLite itself and concurrent appends of one id are safe. ReadRecent
// orders by rowid, which is insertion order.
//
// # SQLite Configuration
//
// Connections are opened with WAL journaling and a busy timeout so readers
// do not block the sync writer:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Timestamps are stored as RFC 3339 text in UTC.
//
// # Secrets
//
// Secret values are sealed with NaCl secretbox under a 32-byte key kept
// outside the database (see LoadOrCreateKey). A store opened without a key
// refuses secret operations with ErrSecretsLocked.
package store
