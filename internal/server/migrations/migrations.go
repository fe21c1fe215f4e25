// Package migrations embeds the goose SQL migrations for the document
// submission subsystem.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
