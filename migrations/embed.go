// Package migrations embeds the climate schema into the binary.
//
// Importing this package for its side effect registers the files with the
// database package, so the daemon needs no SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
