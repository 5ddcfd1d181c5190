package model

import "time"

// User is a tenant account. Password hashes arrive already hashed by the caller.
type User struct {
	TenantID                                  string     `gorm:"column:tenant_id;primaryKey"`
	Identifier                                string     `gorm:"column:identifier;primaryKey"`
	Role                                      string     `gorm:"column:role;not null"`
	PasswordHash                              []byte     `gorm:"column:password_hash;type:bytea;not null"`
	Salt                                      []byte     `gorm:"column:salt;type:bytea;not null"`
	PasswordMustChange                        bool       `gorm:"column:password_must_change;not null"`
	TimeToChangePasswordAfterExpirationInDays int        `gorm:"column:time_to_change_password_after_expiration_in_days;not null"`
	PasswordExpiresOn                         *time.Time `gorm:"column:password_expires_on"`
	UpdatedAt                                 time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
