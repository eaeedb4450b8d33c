// Package migrations embeds the SQL schema migrations into the binary.
package migrations

import "embed"

// FS holds the migration files at its root, in the
// YYYYMMDD_HHMMSS_description.{up,down}.sql layout database.Migrate expects.
//
//go:embed *.sql
var FS embed.FS
