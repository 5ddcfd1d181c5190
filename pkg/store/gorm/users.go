package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore implements store.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a new UserStore
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) BuildSchema(ctx context.Context) error {
	return requireTables(ctx, s.db, model.User{}.TableName())
}

// Put upserts a user by identifier, overwriting every credential column
func (s *UserStore) Put(ctx context.Context, tenantID string, user model.User) error {
	return wrapError(s.db.WithContext(ctx).Exec(`
		INSERT INTO users (tenant_id, identifier, role, password_hash, salt, password_must_change,
			time_to_change_password_after_expiration_in_days, password_expires_on, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, now())
		ON CONFLICT (tenant_id, identifier) DO UPDATE SET
			role = EXCLUDED.role,
			password_hash = EXCLUDED.password_hash,
			salt = EXCLUDED.salt,
			password_must_change = EXCLUDED.password_must_change,
			time_to_change_password_after_expiration_in_days = EXCLUDED.time_to_change_password_after_expiration_in_days,
			password_expires_on = EXCLUDED.password_expires_on,
			updated_at = EXCLUDED.updated_at
	`,
		tenantID,
		user.Identifier,
		user.Role,
		user.PasswordHash,
		user.Salt,
		user.PasswordMustChange,
		user.TimeToChangePasswordAfterExpirationInDays,
		user.PasswordExpiresOn,
	).Error)
}

// Get returns a user by identifier
func (s *UserStore) Get(ctx context.Context, tenantID, identifier string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND identifier = ?", tenantID, identifier).
		Take(&user).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}
