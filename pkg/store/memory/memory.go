// Package memory implements every store interface on in-process maps.
//
// The stores are safe for concurrent use. They back unit tests and the
// server's in-memory mode; nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

type schemaState struct {
	missing atomic.Bool
}

// SetSchemaMissing makes BuildSchema report store.ErrSchemaNotReady
func (s *schemaState) SetSchemaMissing(missing bool) {
	s.missing.Store(missing)
}

func (s *schemaState) BuildSchema(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if s.missing.Load() {
		return store.ErrSchemaNotReady
	}
	return nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return nil
}

func key(tenantID, identifier string) string {
	return tenantID + "\x00" + identifier
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
