// Package database provides the schema migrations for the account store.
package database

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/000001_init.up.sql
var initMigrationUp string

//go:embed migrations/000001_init.down.sql
var initMigrationDown string

// Execer is the subset of pgx connection behavior the migrations need.
// Both pgx.Conn and pgxpool.Pool satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// MigrateUp executes the database migrations
func MigrateUp(ctx context.Context, db Execer) error {
	_, err := db.Exec(ctx, initMigrationUp)
	return err
}

// MigrateDown executes the database migrations in reverse order
func MigrateDown(ctx context.Context, db Execer) error {
	_, err := db.Exec(ctx, initMigrationDown)
	return err
}
