// Package migrations embeds the SQL migrations for the recipient store.
// They are applied on startup by database.ApplyMigrations.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files, named NNNNNN_title.{up,down}.sql.
//
//go:embed *.sql
var FS embed.FS
