// Package store defines the narrow persistence interfaces the provisioning
// protocol depends on.
//
// Implementations live in subpackages:
//
//   - gorm: the primary tenant-scoped store on PostgreSQL
//   - mirror: the auxiliary relational mirror of permittable groups
//   - memory: in-process maps, for tests and local development
//
// Every implementation reports failures with the sentinel errors declared
// here so callers can classify them with errors.Is.
package store
