// Package migrations embeds the goose migrations of the two local databases.
// Migrations are additive only: a new partition or index is a new file.
package migrations

import "embed"

// FS holds main/*.sql (profile, orders, sync_queue, photos) and
// settings/*.sql (settings).
//
//go:embed main/*.sql settings/*.sql
var FS embed.FS

// Directory names inside FS.
const (
	Main     = "main"
	Settings = "settings"
)
