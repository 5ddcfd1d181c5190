package store

import "errors"

var (
	// ErrNotFound is returned when a lookup has no result.
	ErrNotFound = errors.New("not found")
	// ErrSchemaNotReady is returned when the backing tables have not been migrated.
	ErrSchemaNotReady = errors.New("schema not ready")
	// ErrKeyGeneration is returned when signing key material could not be produced.
	ErrKeyGeneration = errors.New("key generation failed")
	// ErrUnavailable wraps connection, timeout and other backend failures.
	ErrUnavailable = errors.New("store unavailable")
	// ErrAlreadyExists is returned by write-once operations on an existing record.
	ErrAlreadyExists = errors.New("already exists")
)
