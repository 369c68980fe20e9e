package thermo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testSchema mirrors the migrated registry schema.
const testSchema = `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			is_staff INTEGER NOT NULL DEFAULT 0 CHECK (is_staff IN (0, 1)),
			is_active INTEGER NOT NULL DEFAULT 1 CHECK (is_active IN (0, 1)),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE thermometers (
			id TEXT PRIMARY KEY,
			owner_id TEXT REFERENCES users(id) ON DELETE CASCADE,
			display_name TEXT NOT NULL DEFAULT 'Thermometer Name Not Provided',
			registered INTEGER NOT NULL DEFAULT 0 CHECK (registered IN (0, 1)),
			registered_at TEXT,
			created_at TEXT NOT NULL,
			CHECK (
				(registered = 0 AND owner_id IS NULL AND registered_at IS NULL) OR
				(registered = 1 AND owner_id IS NOT NULL AND registered_at IS NOT NULL)
			)
		) STRICT;

		CREATE TABLE temperature_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thermometer_id TEXT NOT NULL REFERENCES thermometers(id) ON DELETE CASCADE,
			degrees_micro INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		) STRICT;
	`

// setupTestDB creates an in-memory SQLite database with the registry schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Each connection would get its own in-memory database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(testSchema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// seedUser inserts a user row so owner foreign keys resolve.
func seedUser(t *testing.T, db *sql.DB, id string, staff bool) {
	t.Helper()

	isStaff := 0
	if staff {
		isStaff = 1
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.Exec(
		`INSERT INTO users (id, username, password_hash, is_staff, created_at, updated_at)
		 VALUES (?, ?, 'x', ?, ?, ?)`,
		id, "user-"+id, isStaff, now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
}

// placeholderThermometer builds an unregistered thermometer.
func placeholderThermometer(id string) *Thermometer {
	return &Thermometer{
		ID:          id,
		DisplayName: DefaultDisplayName,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice", false)

	now := time.Now().UTC().Truncate(time.Millisecond)
	owner := "alice"
	in := &Thermometer{
		ID:           "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		OwnerID:      &owner,
		DisplayName:  "Greenhouse",
		Registered:   true,
		RegisteredAt: &now,
		CreatedAt:    now,
	}
	if err := repo.CreateThermometer(ctx, in); err != nil {
		t.Fatalf("CreateThermometer() error = %v", err)
	}

	got, err := repo.GetThermometer(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetThermometer() error = %v", err)
	}
	if got.DisplayName != "Greenhouse" {
		t.Errorf("DisplayName = %q, want %q", got.DisplayName, "Greenhouse")
	}
	if !got.Registered || got.OwnerID == nil || *got.OwnerID != "alice" || got.RegisteredAt == nil {
		t.Errorf("registration fields = (%v, %v, %v), want registered to alice", got.Registered, got.OwnerID, got.RegisteredAt)
	}
	if len(got.Readings) != 0 {
		t.Errorf("Readings = %d, want 0", len(got.Readings))
	}
}

func TestRepositoryCreateDuplicateID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	id := "f47ac10b-58cc-4372-a567-0e02b2c3d479"
	if err := repo.CreateThermometer(ctx, placeholderThermometer(id)); err != nil {
		t.Fatalf("first create error = %v", err)
	}
	err := repo.CreateThermometer(ctx, placeholderThermometer(id))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("duplicate create error = %v, want ErrInvalidInput", err)
	}
}

func TestRepositoryGetNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	_, err := repo.GetThermometer(context.Background(), "missing")
	if !errors.Is(err, ErrThermometerNotFound) {
		t.Errorf("GetThermometer() error = %v, want ErrThermometerNotFound", err)
	}
}

func TestRepositoryRegister(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)

	id := "f47ac10b-58cc-4372-a567-0e02b2c3d479"
	if err := repo.CreateThermometer(ctx, placeholderThermometer(id)); err != nil {
		t.Fatalf("create error = %v", err)
	}

	at := time.Now().UTC()
	if err := repo.Register(ctx, id, "alice", at); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := repo.GetThermometer(ctx, id)
	if err != nil {
		t.Fatalf("GetThermometer() error = %v", err)
	}
	if !got.Registered || got.OwnerID == nil || *got.OwnerID != "alice" {
		t.Errorf("after register: registered=%v owner=%v, want registered to alice", got.Registered, got.OwnerID)
	}
	firstAt := *got.RegisteredAt

	// Second registration must fail and leave the fields unchanged.
	err = repo.Register(ctx, id, "bob", time.Now().UTC())
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second Register() error = %v, want ErrAlreadyRegistered", err)
	}
	got, err = repo.GetThermometer(ctx, id)
	if err != nil {
		t.Fatalf("GetThermometer() error = %v", err)
	}
	if *got.OwnerID != "alice" {
		t.Errorf("owner after failed re-register = %q, want %q", *got.OwnerID, "alice")
	}
	if !got.RegisteredAt.Equal(firstAt) {
		t.Errorf("registered_at changed after failed re-register")
	}
}

func TestRepositoryRegisterNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	seedUser(t, db, "alice", false)

	err := repo.Register(context.Background(), "missing", "alice", time.Now().UTC())
	if !errors.Is(err, ErrThermometerNotFound) {
		t.Errorf("Register() error = %v, want ErrThermometerNotFound", err)
	}
}

func TestRepositoryRegisterConcurrent(t *testing.T) {
	// File-backed database so contenders run on separate connections; the
	// in-memory helper's single connection would serialize them trivially.
	path := filepath.Join(t.TempDir(), "registry.db")
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	const contenders = 8
	for i := 0; i < contenders; i++ {
		seedUser(t, db, fmt.Sprintf("owner-%d", i), false)
	}

	id := "7d8fc4b1-2e5a-4c6f-9b3d-1a0e8f7c6d5e"
	if err := repo.CreateThermometer(ctx, placeholderThermometer(id)); err != nil {
		t.Fatalf("create error = %v", err)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			results[n] = repo.Register(ctx, id, fmt.Sprintf("owner-%d", n), time.Now().UTC())
		}(i)
	}
	close(start)
	wg.Wait()

	winner := -1
	losses := 0
	for i, regErr := range results {
		switch {
		case regErr == nil:
			if winner >= 0 {
				t.Fatalf("both owner-%d and owner-%d registered", winner, i)
			}
			winner = i
		case errors.Is(regErr, ErrAlreadyRegistered):
			losses++
		default:
			t.Errorf("owner-%d: unexpected error %v", i, regErr)
		}
	}
	if winner < 0 {
		t.Fatal("no contender registered")
	}
	if losses != contenders-1 {
		t.Errorf("losers = %d, want %d", losses, contenders-1)
	}

	got, err := repo.GetThermometer(ctx, id)
	if err != nil {
		t.Fatalf("GetThermometer() error = %v", err)
	}
	want := fmt.Sprintf("owner-%d", winner)
	if got.OwnerID == nil || *got.OwnerID != want {
		t.Errorf("owner = %v, want %s", got.OwnerID, want)
	}
}

func TestRepositoryUpdateAppendsBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	id := "f47ac10b-58cc-4372-a567-0e02b2c3d479"
	if err := repo.CreateThermometer(ctx, placeholderThermometer(id)); err != nil {
		t.Fatalf("create error = %v", err)
	}

	name := "Patio"
	batch := []TemperatureReading{
		{DegreesCelsius: 21_500_000},  // 21.5
		{DegreesCelsius: -5_250_000},  // -5.25
		{DegreesCelsius: 100_123_456}, // 100.123456
	}
	created, err := repo.UpdateThermometer(ctx, id, &name, batch)
	if err != nil {
		t.Fatalf("UpdateThermometer() error = %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d readings, want 3", len(created))
	}
	for i, r := range created {
		if r.ID == 0 {
			t.Errorf("reading %d has no assigned id", i)
		}
	}

	got, err := repo.GetThermometer(ctx, id)
	if err != nil {
		t.Fatalf("GetThermometer() error = %v", err)
	}
	if got.DisplayName != "Patio" {
		t.Errorf("DisplayName = %q, want %q", got.DisplayName, "Patio")
	}
	if len(got.Readings) != 3 {
		t.Fatalf("attached %d readings, want 3", len(got.Readings))
	}
	// Exact microdegree round-trip through storage.
	found := false
	for _, r := range got.Readings {
		if r.DegreesCelsius == 100_123_456 {
			found = true
		}
	}
	if !found {
		t.Errorf("stored readings lost precision: %v", got.Readings)
	}
	// Denormalised parent name travels with each reading.
	if got.Readings[0].ThermometerName != "Patio" {
		t.Errorf("ThermometerName = %q, want %q", got.Readings[0].ThermometerName, "Patio")
	}
}

func TestRepositoryUpdateNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	name := "x"
	_, err := repo.UpdateThermometer(context.Background(), "missing", &name, nil)
	if !errors.Is(err, ErrThermometerNotFound) {
		t.Errorf("UpdateThermometer() error = %v, want ErrThermometerNotFound", err)
	}
}

func TestRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	id := "f47ac10b-58cc-4372-a567-0e02b2c3d479"
	if err := repo.CreateThermometer(ctx, placeholderThermometer(id)); err != nil {
		t.Fatalf("create error = %v", err)
	}
	if _, err := repo.UpdateThermometer(ctx, id, nil, []TemperatureReading{
		{DegreesCelsius: 1_000_000},
		{DegreesCelsius: 2_000_000},
	}); err != nil {
		t.Fatalf("append error = %v", err)
	}

	if err := repo.DeleteThermometer(ctx, id); err != nil {
		t.Fatalf("DeleteThermometer() error = %v", err)
	}

	if _, err := repo.GetThermometer(ctx, id); !errors.Is(err, ErrThermometerNotFound) {
		t.Errorf("get after delete error = %v, want ErrThermometerNotFound", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM temperature_readings").Scan(&count); err != nil {
		t.Fatalf("counting readings: %v", err)
	}
	if count != 0 {
		t.Errorf("orphan readings after cascade delete = %d, want 0", count)
	}
}

func TestRepositoryDeleteNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	err := repo.DeleteThermometer(context.Background(), "missing")
	if !errors.Is(err, ErrThermometerNotFound) {
		t.Errorf("DeleteThermometer() error = %v, want ErrThermometerNotFound", err)
	}
}

func TestRepositoryListByOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)

	base := time.Now().UTC().Add(-time.Hour)
	for i, owner := range []string{"alice", "alice", "bob"} {
		o := owner
		at := base.Add(time.Duration(i) * time.Minute)
		err := repo.CreateThermometer(ctx, &Thermometer{
			ID:           fmt.Sprintf("f47ac10b-58cc-4372-a567-0e02b2c3d47%d", i),
			OwnerID:      &o,
			DisplayName:  DefaultDisplayName,
			Registered:   true,
			RegisteredAt: &at,
			CreatedAt:    at,
		})
		if err != nil {
			t.Fatalf("create %d error = %v", i, err)
		}
	}

	all, err := repo.ListThermometers(ctx)
	if err != nil {
		t.Fatalf("ListThermometers() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListThermometers() = %d, want 3", len(all))
	}
	// Creation time ascending.
	if !all[0].CreatedAt.Before(all[1].CreatedAt) {
		t.Errorf("list not ordered by created_at")
	}

	mine, err := repo.ListThermometersByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListThermometersByOwner() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("alice's thermometers = %d, want 2", len(mine))
	}
}

func TestRepositoryReadingsByOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)

	now := time.Now().UTC()
	for i, owner := range []string{"alice", "bob"} {
		o := owner
		id := fmt.Sprintf("f47ac10b-58cc-4372-a567-0e02b2c3d47%d", i)
		err := repo.CreateThermometer(ctx, &Thermometer{
			ID: id, OwnerID: &o, DisplayName: o + "'s sensor",
			Registered: true, RegisteredAt: &now, CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("create error = %v", err)
		}
		if _, err := repo.UpdateThermometer(ctx, id, nil, []TemperatureReading{
			{DegreesCelsius: Degrees(i+1) * microPerDegree},
		}); err != nil {
			t.Fatalf("append error = %v", err)
		}
	}

	all, err := repo.ListReadings(ctx)
	if err != nil {
		t.Fatalf("ListReadings() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListReadings() = %d, want 2", len(all))
	}

	mine, err := repo.ListReadingsByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListReadingsByOwner() error = %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("alice's readings = %d, want 1", len(mine))
	}
	if mine[0].DegreesCelsius != microPerDegree {
		t.Errorf("reading value = %v, want 1.0", mine[0].DegreesCelsius)
	}

	got, err := repo.GetReading(ctx, mine[0].ID)
	if err != nil {
		t.Fatalf("GetReading() error = %v", err)
	}
	if got.OwnerID == nil || *got.OwnerID != "alice" {
		t.Errorf("reading owner = %v, want alice", got.OwnerID)
	}

	if _, err := repo.GetReading(ctx, 9999); !errors.Is(err, ErrReadingNotFound) {
		t.Errorf("GetReading(9999) error = %v, want ErrReadingNotFound", err)
	}
}
