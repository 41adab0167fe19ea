// Package migrations embeds the schema migrations for the weeks and games
// tables.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
