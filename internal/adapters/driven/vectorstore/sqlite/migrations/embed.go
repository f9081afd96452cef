// Package migrations embeds the SQL migration files for the sqlite
// vector store.
package migrations

import "embed"

// FS contains the migration files, named NNN_description.up.sql.
//
//go:embed *.sql
var FS embed.FS
