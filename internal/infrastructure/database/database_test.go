package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/thermocloud/core/internal/infrastructure/database"
	_ "github.com/thermocloud/core/migrations"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     false,
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpenAndMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// All registry tables exist after migration.
	for _, table := range []string{"users", "thermometers", "temperature_readings", "schema_migrations"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}

	var applied int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("counting applied migrations: %v", err)
	}
	if applied == 0 {
		t.Error("no migrations recorded")
	}

	// Re-running is a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	var again int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&again); err != nil {
		t.Fatalf("counting applied migrations: %v", err)
	}
	if again != applied {
		t.Errorf("migration count changed on re-run: %d -> %d", applied, again)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// A reading without a parent thermometer must be rejected.
	_, err := db.ExecContext(ctx,
		`INSERT INTO temperature_readings (thermometer_id, degrees_micro, recorded_at)
		 VALUES ('ghost', 1000000, '2026-01-01T00:00:00Z')`)
	if err == nil {
		t.Error("orphan reading insert succeeded; foreign keys not enforced")
	}
}

func TestRegistrationInvariantEnforced(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// registered=1 with no owner violates the registration CHECK.
	_, err := db.ExecContext(ctx,
		`INSERT INTO thermometers (id, display_name, registered, created_at)
		 VALUES ('t1', 'x', 1, '2026-01-01T00:00:00Z')`)
	if err == nil {
		t.Error("half-registered row accepted; CHECK constraint not enforced")
	}
}
