package store

import (
	"context"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
)

// TenantSecurityStore persists the write-once security parameters of a tenant.
type TenantSecurityStore interface {
	SchemaBuilder

	// Initialize stores info for the tenant. It returns ErrAlreadyExists
	// if the tenant was initialized before; the stored row is left untouched.
	Initialize(ctx context.Context, tenantID string, info model.TenantSecurityInfo) error

	// GetFixedSalt returns the tenant's fixed salt, or ErrNotFound
	GetFixedSalt(ctx context.Context, tenantID string) ([]byte, error)

	// Get returns the full security parameters, or ErrNotFound
	Get(ctx context.Context, tenantID string) (*model.TenantSecurityInfo, error)
}
