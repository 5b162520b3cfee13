// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	"github.com/rubenv/sql-migrate"
)

// This file maintains the database migration code.  See
// https://github.com/rubenv/sql-migrate for details of what goes in
// here.  This runs "outside" the normal store flow, either at
// initial startup or from an external tool.

var migrationSource = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "001-service-definitions",
			Up: []string{
				`CREATE TABLE ` + serviceTable + `(
					name TEXT NOT NULL PRIMARY KEY,
					payload BYTEA NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL
				)`,
				`CREATE INDEX ` + serviceTable + `_created_at ON ` +
					serviceTable + `(created_at)`,
			},
			Down: []string{
				`DROP TABLE ` + serviceTable,
			},
		},
	},
}

// Upgrade upgrades a database to the latest database schema version.
func Upgrade(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Up)
	return err
}

// Drop clears a database by running all of the migrations in reverse,
// ultimately resulting in dropping all of the tables.
func Drop(db *sql.DB) error {
	_, err := migrate.Exec(db, "postgres", migrationSource, migrate.Down)
	return err
}
