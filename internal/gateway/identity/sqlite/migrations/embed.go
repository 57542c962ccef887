package migrations

import "embed"

// FS contains embedded SQLite migrations for the identity store.
//
//go:embed *.sql
var FS embed.FS
