// Package gorm implements the primary tenant-scoped stores on PostgreSQL.
//
// Writes are raw upserts so that re-running a provisioning step overwrites
// rather than duplicates; write-once tables use ON CONFLICT DO NOTHING and
// report ErrAlreadyExists when nothing was written.
//
// Signing key private halves are encrypted with the data key before they are
// written and decrypted keys are kept in an LRU cache. Key sets are immutable,
// so cached entries never go stale.
package gorm
