// Package migrations embeds the goose SQL migrations applied at boot.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
