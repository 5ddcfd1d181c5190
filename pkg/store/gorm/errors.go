package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// wrapError maps database errors onto the store sentinels
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}

// requireTables returns store.ErrSchemaNotReady for the first missing table
func requireTables(ctx context.Context, db *gorm.DB, tables ...string) error {
	for _, table := range tables {
		var exists bool
		err := db.WithContext(ctx).
			Raw(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = ?)`, table).
			Scan(&exists).Error
		if err != nil {
			return wrapError(err)
		}
		if !exists {
			return fmt.Errorf("%w: table %q is missing", store.ErrSchemaNotReady, table)
		}
	}
	return nil
}
