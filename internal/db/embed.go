package db

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed migrations
var migrationsFS embed.FS

// DevMode selects the on-disk migrations directory instead of the embedded
// copy, so migration files can be edited without rebuilding.
var DevMode = false

// getMigrationsFS returns the migrations filesystem rooted at the directory
// containing the numbered .sql files.
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		return os.DirFS("internal/db/migrations"), nil
	}
	return fs.Sub(migrationsFS, "migrations")
}
