// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

// The schema ships embedded in the binary; the portal migrates itself on
// startup and there is no separate migrate command.
//
//go:embed migrations/*.sql
var migrationFS embed.FS

// RunMigrations brings the contact schema up to date. Open calls it on every
// start; running it against an already current database is a no-op.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrationFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.Up(db, "migrations")
}
