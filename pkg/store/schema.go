package store

import "context"

// SchemaBuilder is implemented by every store. BuildSchema verifies the
// tables the store needs exist; migrations themselves run out of band.
type SchemaBuilder interface {
	// BuildSchema returns ErrSchemaNotReady when a required table is missing
	BuildSchema(ctx context.Context) error
}

// HealthStore provides health check operations
type HealthStore interface {
	// CheckConnectivity verifies database connectivity
	CheckConnectivity(ctx context.Context) error
}
