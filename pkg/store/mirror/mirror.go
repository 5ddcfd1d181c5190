// Package mirror keeps the auxiliary relational copy of permittable groups.
//
// The mirror lives in its own database and shares no transaction with the
// primary store. Inserts are insert-or-ignore so a provisioning run that
// reaches the mirror again after a partial failure does not fail on the
// existing row.
package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

const tableName = "permittable_group_mirror"

var _ store.PermittableGroupMirror = (*Store)(nil)

// Store implements store.PermittableGroupMirror on database/sql
type Store struct {
	db *sql.DB
}

// Open connects to the mirror database with the postgres driver
func Open(url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB creates a store with an existing database connection
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) BuildSchema(ctx context.Context) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, tableName,
	).Scan(&exists)
	if err != nil {
		return wrapError(err)
	}
	if !exists {
		return fmt.Errorf("%w: table %q is missing", store.ErrSchemaNotReady, tableName)
	}
	return nil
}

// Insert adds the record unless one with the same identifier exists
func (s *Store) Insert(ctx context.Context, tenantID string, record store.MirrorRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permittable_group_mirror (tenant_id, identifier, permittables)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, identifier) DO NOTHING
	`, tenantID, record.Identifier, record.Permittables)
	return wrapError(err)
}

// Get returns a record by identifier
func (s *Store) Get(ctx context.Context, tenantID, identifier string) (*store.MirrorRecord, error) {
	var record store.MirrorRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT identifier, permittables FROM permittable_group_mirror
		WHERE tenant_id = $1 AND identifier = $2
	`, tenantID, identifier).Scan(&record.Identifier, &record.Permittables)
	if err != nil {
		return nil, wrapError(err)
	}
	return &record, nil
}

// List returns every record of the tenant
func (s *Store) List(ctx context.Context, tenantID string) ([]store.MirrorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, permittables FROM permittable_group_mirror
		WHERE tenant_id = $1
		ORDER BY identifier
	`, tenantID)
	if err != nil {
		return nil, wrapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []store.MirrorRecord
	for rows.Next() {
		var record store.MirrorRecord
		if err := rows.Scan(&record.Identifier, &record.Permittables); err != nil {
			return nil, wrapError(err)
		}
		records = append(records, record)
	}
	return records, wrapError(rows.Err())
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%w: mirror: %w", store.ErrUnavailable, err)
}
