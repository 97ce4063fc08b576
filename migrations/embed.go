// Package migrations holds the PostgreSQL schema for the forensic store.
package migrations

import "embed"

// FS contains the versioned golang-migrate SQL files.
//
//go:embed *.sql
var FS embed.FS
