package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/identity-in-go/pkg/db"
)

// schema is one migrated database
type schema struct {
	name string
	// dir is the migrations subdirectory
	dir string
	url func() string
	env string
}

var schemas = []schema{
	{name: "primary", dir: "primary", url: db.URL, env: "DATABASE_URL"},
	{name: "mirror", dir: "mirror", url: db.MirrorURL, env: "MIRROR_DATABASE_URL"},
}

// dbMigrateCmd represents the db migrate command
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the database schemas",
	Long: `Create and/or upgrade the primary and mirror database schemas.

This command runs all pending migrations against DATABASE_URL and
MIRROR_DATABASE_URL. Use --only to migrate a single database.

Example:
  identityctl db migrate
  identityctl db migrate --only mirror`,
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetString("only")
		return forEachSchema(only, runMigrations)
	},
}

var dbMigrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback database migrations",
	Long: `Rollback database migrations.

This command rolls back the specified number of migrations (default: 1) on
each selected database.

Example:
  identityctl db down      # Rollback 1 migration
  identityctl db down 3    # Rollback 3 migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) > 0 {
			if _, err := fmt.Sscanf(args[0], "%d", &steps); err != nil || steps < 1 {
				return fmt.Errorf("invalid number of steps: %s", args[0])
			}
		}
		only, _ := cmd.Flags().GetString("only")
		return forEachSchema(only, func(s schema) error { return runMigrationsDown(s, steps) })
	},
}

var dbMigrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current migration versions",
	Long:  `Show the current migration version of each database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetString("only")
		return forEachSchema(only, showMigrationStatus)
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbMigrateDownCmd)
	dbCmd.AddCommand(dbMigrateStatusCmd)

	for _, cmd := range []*cobra.Command{dbMigrateCmd, dbMigrateDownCmd, dbMigrateStatusCmd} {
		cmd.Flags().String("only", "", "limit to one database (primary or mirror)")
	}
}

func forEachSchema(only string, fn func(schema) error) error {
	matched := false
	for _, s := range schemas {
		if only != "" && only != s.name {
			continue
		}
		matched = true
		if err := fn(s); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if !matched {
		return fmt.Errorf("unknown database %q", only)
	}
	return nil
}

// withMigrationsTable keeps golang-migrate's bookkeeping in its own table
func withMigrationsTable(dbURL string) string {
	if strings.Contains(dbURL, "?") {
		return dbURL + "&x-migrations-table=identity_schema_migrations"
	}
	return dbURL + "?x-migrations-table=identity_schema_migrations"
}

func openMigrate(s schema) (*migrate.Migrate, error) {
	dbURL := s.url()
	if dbURL == "" {
		return nil, fmt.Errorf("%s environment variable is required", s.env)
	}

	m, err := createMigrateInstance(s.dir, withMigrationsTable(dbURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func runMigrations(s schema) error {
	m, err := openMigrate(s)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, _ := m.Version()
	fmt.Printf("[%s] Current version: %d (dirty: %v)\n", s.name, version, dirty)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Printf("[%s] No migrations to run - database is up to date\n", s.name)
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	newVersion, _, _ := m.Version()
	fmt.Printf("[%s] Migrated to version: %d\n", s.name, newVersion)
	return nil
}

func runMigrationsDown(s schema, steps int) error {
	m, err := openMigrate(s)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	fmt.Printf("[%s] Rolling back %d migration(s)...\n", s.name, steps)

	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Printf("[%s] Rolled back all migrations\n", s.name)
		return nil
	}
	fmt.Printf("[%s] Rolled back to version: %d\n", s.name, version)
	return nil
}

func showMigrationStatus(s schema) error {
	m, err := openMigrate(s)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Printf("[%s] No migrations have been applied yet\n", s.name)
			return nil
		}
		return err
	}

	fmt.Printf("[%s] Current version: %d\n", s.name, version)
	if dirty {
		fmt.Printf("[%s] Warning: Database is in a dirty state\n", s.name)
	}
	return nil
}
