// Package db embeds the SQL migrations of the primary and mirror databases.
package db

import "embed"

// Migrations holds migrations/primary and migrations/mirror
//
//go:embed migrations
var Migrations embed.FS
