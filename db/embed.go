// Package db embeds the goose SQL migrations.
package db

import "embed"

// Migrations holds the versioned schema migrations under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
