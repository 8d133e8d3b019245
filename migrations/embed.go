// Package migrations embeds the SQL migration files into the binary so the
// add-on needs no schema files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/hud-informer/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files sit at the root of the embedded FS
}
