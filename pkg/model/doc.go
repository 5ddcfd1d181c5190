// Package model defines the tenant identity records and their database mapping.
//
// Every row is scoped by tenant_id. The primary store keeps:
//
//   - signing_keys: RSA signing key sets, private half encrypted with the data key
//   - tenant_security: fixed password salt and password expiry policy
//   - permittable_groups: named bundles of (path, method) permittables
//   - roles: roles granting operations over permittable groups
//   - users: tenant user accounts
//
// Permittables and permissions are stored as JSON columns.
package model
