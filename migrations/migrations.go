// Package migrations embeds the SQL schema for each supported database.
package migrations

import "embed"

// SqliteMigrations holds the schema for development and offline tooling.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds the production schema.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
