package db

import (
	"io/fs"
	"path/filepath"
	"testing"
)

func TestEmbeddedMigrationsFS(t *testing.T) {
	origDevMode := DevMode
	DevMode = false
	defer func() { DevMode = origDevMode }()

	mfs, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}

	ups, err := fs.Glob(mfs, "*.up.sql")
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	downs, err := fs.Glob(mfs, "*.down.sql")
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("no up migrations embedded")
	}
	if len(ups) != len(downs) {
		t.Errorf("%d up migrations but %d down migrations", len(ups), len(downs))
	}
}

func TestMigrateUpAndVersion(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer database.Close()

	mfs, err := getMigrationsFS()
	if err != nil {
		t.Fatal(err)
	}

	// Fresh database has no version.
	version, dirty, err := database.MigrateVersion(mfs)
	if err != nil {
		t.Fatalf("MigrateVersion on fresh db failed: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh db version = %d dirty = %v", version, dirty)
	}

	if err := database.MigrateUp(mfs); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	latest, err := GetLatestMigrationVersion(mfs)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion failed: %v", err)
	}
	version, dirty, err = database.MigrateVersion(mfs)
	if err != nil {
		t.Fatal(err)
	}
	if version != latest || dirty {
		t.Errorf("version = %d dirty = %v, want %d clean", version, dirty, latest)
	}

	// Running up again is a no-op.
	if err := database.MigrateUp(mfs); err != nil {
		t.Errorf("second MigrateUp failed: %v", err)
	}

	// Schema is usable after migration.
	var count int
	if err := database.QueryRow(`SELECT COUNT(*) FROM territories`).Scan(&count); err != nil {
		t.Errorf("territories table missing after migration: %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	mfs, err := getMigrationsFS()
	if err != nil {
		t.Fatal(err)
	}
	if err := database.MigrateUp(mfs); err != nil {
		t.Fatal(err)
	}

	before, _, err := database.MigrateVersion(mfs)
	if err != nil {
		t.Fatal(err)
	}
	if err := database.MigrateDown(mfs); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	after, _, err := database.MigrateVersion(mfs)
	if err != nil {
		t.Fatal(err)
	}
	if after >= before {
		t.Errorf("version after down = %d, want below %d", after, before)
	}
}

func TestGetMigrationStatus(t *testing.T) {
	database := newTestDB(t)

	mfs, err := getMigrationsFS()
	if err != nil {
		t.Fatal(err)
	}
	status, err := database.GetMigrationStatus(mfs)
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if exists, _ := status["schema_migrations_exists"].(bool); !exists {
		t.Error("schema_migrations table not reported")
	}
	if status["dirty"] != false {
		t.Errorf("dirty = %v", status["dirty"])
	}
}
