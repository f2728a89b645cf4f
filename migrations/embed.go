// Package migrations embeds the ledger schema so binaries can migrate
// without shipping the SQL files separately.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
