// Package audit records security events in RFC5424 syslog format.
//
// Tenant bootstraps and superuser password resets are audited separately
// from operational logs:
//
//	audit.Log(audit.ProvisionEvent{TenantID: "acme", Success: true})
//
// Events go to stdout and, when AUDIT_DATABASE_URL is set, to the messages
// table of the audit database. Set IDENTITY_AUDIT_ENABLED=false to disable.
package audit
