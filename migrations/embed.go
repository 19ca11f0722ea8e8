// Package migrations embeds the development backend's postgresql schema.
package migrations

import "embed"

// FS contains all migration SQL files.
//
//go:embed *.sql
var FS embed.FS
