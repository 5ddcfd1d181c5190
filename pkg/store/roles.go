package store

import (
	"context"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
)

// RoleStore persists tenant roles
type RoleStore interface {
	SchemaBuilder

	// Put creates or overwrites the role keyed by its identifier
	Put(ctx context.Context, tenantID string, role model.Role) error

	// Get returns a role by identifier, or ErrNotFound
	Get(ctx context.Context, tenantID, identifier string) (*model.Role, error)
}

// UserStore persists tenant users
type UserStore interface {
	SchemaBuilder

	// Put creates or overwrites the user keyed by its identifier
	Put(ctx context.Context, tenantID string, user model.User) error

	// Get returns a user by identifier, or ErrNotFound
	Get(ctx context.Context, tenantID, identifier string) (*model.User, error)
}
