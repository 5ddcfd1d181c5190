package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

var _ store.PermittableGroupStore = (*PermittableGroupStore)(nil)

// PermittableGroupStore implements store.PermittableGroupStore using GORM
type PermittableGroupStore struct {
	db *gorm.DB
}

// NewPermittableGroupStore creates a new PermittableGroupStore
func NewPermittableGroupStore(db *gorm.DB) *PermittableGroupStore {
	return &PermittableGroupStore{db: db}
}

func (s *PermittableGroupStore) BuildSchema(ctx context.Context) error {
	return requireTables(ctx, s.db, model.PermittableGroup{}.TableName())
}

// Put upserts a permittable group by identifier
func (s *PermittableGroupStore) Put(ctx context.Context, tenantID string, group model.PermittableGroup) error {
	return wrapError(s.db.WithContext(ctx).Exec(`
		INSERT INTO permittable_groups (tenant_id, identifier, permittables)
		VALUES (?, ?, ?)
		ON CONFLICT (tenant_id, identifier) DO UPDATE SET permittables = EXCLUDED.permittables
	`, tenantID, group.Identifier, group.Permittables).Error)
}

// Get returns a permittable group by identifier
func (s *PermittableGroupStore) Get(ctx context.Context, tenantID, identifier string) (*model.PermittableGroup, error) {
	var group model.PermittableGroup
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND identifier = ?", tenantID, identifier).
		Take(&group).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &group, nil
}

// List returns every permittable group of the tenant
func (s *PermittableGroupStore) List(ctx context.Context, tenantID string) ([]model.PermittableGroup, error) {
	var groups []model.PermittableGroup
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("identifier").
		Find(&groups).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return groups, nil
}
