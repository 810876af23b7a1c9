// Package sqlitemigrations embeds the sqlite schema migrations.
package sqlitemigrations

import "embed"

//go:embed *.sql
var migrationsFS embed.FS

// Migrations returns the embedded migration filesystem.
func Migrations() embed.FS {
	return migrationsFS
}
