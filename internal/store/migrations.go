package store

import (
	"database/sql"
	"fmt"

	"github.com/kskby/dpd/migrations"
	"github.com/pressly/goose/v3"
)

// runMigrations applies pending schema migrations from the embedded SQL
// files.
func runMigrations(db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
