// Package migrations embeds the versioned schema scripts applied by cmd/migrate.
package migrations

import "embed"

// FS holds every *.sql migration in golang-migrate naming order.
//
//go:embed *.sql
var FS embed.FS
