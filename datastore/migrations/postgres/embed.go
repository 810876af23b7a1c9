// Package pgmigrations embeds the postgres schema migrations.
package pgmigrations

import "embed"

//go:embed *.sql
var migrationsFS embed.FS

// Migrations returns the embedded migration filesystem.
func Migrations() embed.FS {
	return migrationsFS
}
