// Command identityctl provisions tenant identities.
//
// A tenant is provisioned once: identityctl creates its RSA signing key, its
// fixed password salt, the bootstrap permittable groups, the SU_ROLE role and
// the "antony" superuser. Provisioning an existing tenant resets the
// superuser password instead.
//
// # Quick Start
//
//	# Generate a data key for private key encryption
//	export IDENTITY_DATA_KEY=$(identityctl data-key generate)
//
//	# Run database migrations on the primary and mirror databases
//	identityctl db migrate
//
//	# Provision a tenant from the command line
//	identityctl tenant provision acme --password 'initial password'
//
//	# Or start the server
//	identityctl server
//
// # Environment Variables
//
//   - DATABASE_URL: Primary PostgreSQL connection string
//   - MIRROR_DATABASE_URL: Mirror PostgreSQL connection string
//   - IDENTITY_DATA_KEY: Base64-encoded 256-bit key for private key encryption
//   - IDENTITY_LOG_LEVEL: Log level (debug, info, warn, error)
//   - AUDIT_DATABASE_URL: Optional database for audit events
//   - PORT: Server port (default: 8000)
package main
