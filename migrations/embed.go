// Package migrations embeds SQL migration files into the binary, so the
// schema ships with the executable and no SQL files are needed on disk.
package migrations

import (
	"embed"

	"github.com/thermocloud/core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded migrations with the database package.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
