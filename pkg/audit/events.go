package audit

import "fmt"

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ProvisionEvent records a tenant bootstrap
type ProvisionEvent struct {
	TenantID     string
	RunID        string
	KeyTimestamp string
	Success      bool
	ErrorMessage string
}

func (e ProvisionEvent) MessageID() string {
	return "provision"
}

func (e ProvisionEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("tenant %s provisioned with signing key %s", e.TenantID, e.KeyTimestamp)
	}
	msg := fmt.Sprintf("tenant %s failed to provision", e.TenantID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e ProvisionEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityError
}

func (e ProvisionEvent) Facility() int {
	return FacilityAuth
}

func (e ProvisionEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDTenant: {
			"id": e.TenantID,
		},
		SDIDAction: {
			"operation": "provision",
			"result":    result(e.Success),
			"run":       e.RunID,
		},
	}
	if e.KeyTimestamp != "" {
		sd[SDIDKey] = map[string]string{"timestamp": e.KeyTimestamp}
	}
	return sd
}

// PasswordRotationEvent records a superuser password reset on an already
// provisioned tenant
type PasswordRotationEvent struct {
	TenantID     string
	UserID       string
	RunID        string
	Success      bool
	ErrorMessage string
}

func (e PasswordRotationEvent) MessageID() string {
	return "password"
}

func (e PasswordRotationEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("password of %s in tenant %s was reset", e.UserID, e.TenantID)
	}
	msg := fmt.Sprintf("failed to reset password of %s in tenant %s", e.UserID, e.TenantID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e PasswordRotationEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e PasswordRotationEvent) Facility() int {
	return FacilityAuthPriv
}

func (e PasswordRotationEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDTenant: {
			"id": e.TenantID,
		},
		SDIDSubject: {
			"user": e.UserID,
		},
		SDIDAction: {
			"operation": "reset-password",
			"result":    result(e.Success),
			"run":       e.RunID,
		},
	}
}
