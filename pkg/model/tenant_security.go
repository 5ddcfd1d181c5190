package model

import "time"

const (
	DefaultPasswordExpiresInDays                     = 93
	DefaultTimeToChangePasswordAfterExpirationInDays = 4
)

// TenantSecurityInfo is written once per tenant and never updated.
type TenantSecurityInfo struct {
	TenantID                                  string    `gorm:"column:tenant_id;primaryKey"`
	FixedSalt                                 []byte    `gorm:"column:fixed_salt;type:bytea;not null"`
	PasswordExpiresInDays                     int       `gorm:"column:password_expires_in_days;not null"`
	TimeToChangePasswordAfterExpirationInDays int       `gorm:"column:time_to_change_password_after_expiration_in_days;not null"`
	CreatedAt                                 time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TenantSecurityInfo) TableName() string {
	return "tenant_security"
}
