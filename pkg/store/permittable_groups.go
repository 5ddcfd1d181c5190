package store

import (
	"context"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
)

// PermittableGroupStore is the primary, tenant-scoped home of permittable groups.
type PermittableGroupStore interface {
	SchemaBuilder

	// Put creates or overwrites the group keyed by its identifier
	Put(ctx context.Context, tenantID string, group model.PermittableGroup) error

	// Get returns a group by identifier, or ErrNotFound
	Get(ctx context.Context, tenantID, identifier string) (*model.PermittableGroup, error)

	// List returns every group of the tenant ordered by identifier
	List(ctx context.Context, tenantID string) ([]model.PermittableGroup, error)
}

// MirrorRecord is the flattened form of a permittable group kept by the mirror.
type MirrorRecord struct {
	Identifier   string
	Permittables string
}

// PermittableGroupMirror is the auxiliary relational copy of permittable groups.
// It shares no transaction with the primary store.
type PermittableGroupMirror interface {
	SchemaBuilder

	// Insert adds the record. An existing record with the same identifier is
	// kept as is and no error is returned.
	Insert(ctx context.Context, tenantID string, record MirrorRecord) error

	// Get returns a record by identifier, or ErrNotFound
	Get(ctx context.Context, tenantID, identifier string) (*MirrorRecord, error)

	// List returns every record of the tenant ordered by identifier
	List(ctx context.Context, tenantID string) ([]MirrorRecord, error)
}
