// Package config provides configuration management for the identity service.
//
// Settings are resolved in three layers: built-in defaults, the YAML file at
// $IDENTITY_CONFIG_PATH/identity.yml (default /etc/identity/config), then
// IDENTITY_* environment variables. Each attribute remembers which layer set
// it; see IdentityConfig.Attributes.
//
// # Key Configuration Options
//
//   - IDENTITY_APPLICATION_NAME: Permittable path prefix
//   - IDENTITY_SALT_LENGTH: Fixed salt length in bytes
//   - IDENTITY_LOCK_BACKEND: Tenant lock, "local" or "redis"
//   - IDENTITY_REDIS_URL: Redis server for the redis lock backend
//
// Connection strings and the data key are read from the environment only:
// DATABASE_URL, MIRROR_DATABASE_URL, AUDIT_DATABASE_URL and IDENTITY_DATA_KEY.
package config
