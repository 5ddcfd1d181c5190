package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

var _ store.TenantSecurityStore = (*TenantSecurityStore)(nil)

// TenantSecurityStore implements store.TenantSecurityStore using GORM
type TenantSecurityStore struct {
	db *gorm.DB
}

// NewTenantSecurityStore creates a new TenantSecurityStore
func NewTenantSecurityStore(db *gorm.DB) *TenantSecurityStore {
	return &TenantSecurityStore{db: db}
}

func (s *TenantSecurityStore) BuildSchema(ctx context.Context) error {
	return requireTables(ctx, s.db, model.TenantSecurityInfo{}.TableName())
}

// Initialize writes the tenant's security parameters once
func (s *TenantSecurityStore) Initialize(ctx context.Context, tenantID string, info model.TenantSecurityInfo) error {
	res := s.db.WithContext(ctx).Exec(`
		INSERT INTO tenant_security (tenant_id, fixed_salt, password_expires_in_days, time_to_change_password_after_expiration_in_days)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO NOTHING
	`, tenantID, info.FixedSalt, info.PasswordExpiresInDays, info.TimeToChangePasswordAfterExpirationInDays)
	if res.Error != nil {
		return wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: tenant security for %s", store.ErrAlreadyExists, tenantID)
	}
	return nil
}

// GetFixedSalt returns the tenant's fixed salt
func (s *TenantSecurityStore) GetFixedSalt(ctx context.Context, tenantID string) ([]byte, error) {
	info, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return info.FixedSalt, nil
}

// Get returns the tenant's security parameters
func (s *TenantSecurityStore) Get(ctx context.Context, tenantID string) (*model.TenantSecurityInfo, error) {
	var info model.TenantSecurityInfo
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Take(&info).Error; err != nil {
		return nil, wrapError(err)
	}
	return &info, nil
}
