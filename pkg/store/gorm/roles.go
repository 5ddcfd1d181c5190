package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

var _ store.RoleStore = (*RoleStore)(nil)

// RoleStore implements store.RoleStore using GORM
type RoleStore struct {
	db *gorm.DB
}

// NewRoleStore creates a new RoleStore
func NewRoleStore(db *gorm.DB) *RoleStore {
	return &RoleStore{db: db}
}

func (s *RoleStore) BuildSchema(ctx context.Context) error {
	return requireTables(ctx, s.db, model.Role{}.TableName())
}

// Put upserts a role by identifier
func (s *RoleStore) Put(ctx context.Context, tenantID string, role model.Role) error {
	return wrapError(s.db.WithContext(ctx).Exec(`
		INSERT INTO roles (tenant_id, identifier, permissions)
		VALUES (?, ?, ?)
		ON CONFLICT (tenant_id, identifier) DO UPDATE SET permissions = EXCLUDED.permissions
	`, tenantID, role.Identifier, role.Permissions).Error)
}

// Get returns a role by identifier
func (s *RoleStore) Get(ctx context.Context, tenantID, identifier string) (*model.Role, error) {
	var role model.Role
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND identifier = ?", tenantID, identifier).
		Take(&role).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &role, nil
}
