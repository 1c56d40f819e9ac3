// Package db holds the SQL migrations for the upi-guard schema.
package db

import "embed"

// MigrationFS contains the migration files under migrations/.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
