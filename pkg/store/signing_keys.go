package store

import (
	"context"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
)

// SigningKeySet is a decrypted signing key set.
type SigningKeySet struct {
	TenantID  string
	Timestamp string
	Key       *slosilo.Key
}

// SignatureSet returns the public half of the key set.
func (s SigningKeySet) SignatureSet() (model.SignatureSet, error) {
	return model.NewSignatureSet(s.Timestamp, s.Key.PublicKey())
}

// SigningKeyStore persists append-only signing key sets per tenant.
type SigningKeyStore interface {
	SchemaBuilder

	// GenerateAndStore creates a new key pair with a timestamp strictly greater
	// than every timestamp already stored for the tenant
	GenerateAndStore(ctx context.Context, tenantID string) (*SigningKeySet, error)

	// GetLatest returns the key set with the lexically greatest timestamp, or ErrNotFound
	GetLatest(ctx context.Context, tenantID string) (*SigningKeySet, error)
}
