// Package provisioning bootstraps the identity and access-control state of a
// tenant.
//
// A Provisioner is called with a tenant identifier and the superuser password
// hash. On first run it creates the tenant's signing key, fixed salt, the
// four bootstrap permittable groups, the SU_ROLE role and the "antony"
// superuser. When the tenant already has a key and a salt the run only
// rotates the signing key and resets the superuser password.
//
// Calls for one tenant are serialized by a Locker; use NewRedisLocker when
// several processes share the same stores.
package provisioning
