package thermo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for thermometer and reading persistence.
// The abstraction allows different implementations (SQLite, mock) and
// enables unit testing without database dependencies.
//
// Mutation methods carry the registry's atomicity guarantees: Register is a
// serialized check-then-set, UpdateThermometer applies name change and
// reading batch in one transaction, and DeleteThermometer cascades to
// readings with no orphan window.
type Repository interface {
	// CreateThermometer inserts a new thermometer in the state carried by t
	// (the service create flow inserts it already registered to its creator).
	CreateThermometer(ctx context.Context, t *Thermometer) error

	// GetThermometer retrieves a thermometer with its readings attached.
	// Returns ErrThermometerNotFound if the id does not exist.
	GetThermometer(ctx context.Context, id string) (*Thermometer, error)

	// ListThermometers retrieves all thermometers, creation time ascending,
	// readings attached.
	ListThermometers(ctx context.Context) ([]Thermometer, error)

	// ListThermometersByOwner retrieves the owner's thermometers, creation
	// time ascending, readings attached.
	ListThermometersByOwner(ctx context.Context, ownerID string) ([]Thermometer, error)

	// Register performs the one-time registration transition. Two
	// concurrent calls on the same id never both succeed; the loser gets
	// ErrAlreadyRegistered, an unknown id gets ErrThermometerNotFound.
	Register(ctx context.Context, id, ownerID string, at time.Time) error

	// UpdateThermometer applies a display name change (when non-nil) and
	// appends the reading batch in a single transaction. Returns the
	// created readings with store-assigned ids.
	UpdateThermometer(ctx context.Context, id string, displayName *string, readings []TemperatureReading) ([]TemperatureReading, error)

	// DeleteThermometer removes a thermometer and cascades to its readings.
	// Returns ErrThermometerNotFound if the id does not exist.
	DeleteThermometer(ctx context.Context, id string) error

	// GetReading retrieves a reading with its parent's display name and
	// owner attached. Returns ErrReadingNotFound if the id does not exist.
	GetReading(ctx context.Context, id int64) (*TemperatureReading, error)

	// ListReadings retrieves all readings, recorded time ascending.
	ListReadings(ctx context.Context) ([]TemperatureReading, error)

	// ListReadingsByOwner retrieves readings whose parent thermometer
	// belongs to the owner, recorded time ascending.
	ListReadingsByOwner(ctx context.Context, ownerID string) ([]TemperatureReading, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const thermometerColumns = "id, owner_id, display_name, registered, registered_at, created_at"

// readingColumns joins the parent row for the display name and owner.
const readingColumns = `r.id, r.thermometer_id, t.display_name, t.owner_id, r.degrees_micro, r.recorded_at
	FROM temperature_readings r
	JOIN thermometers t ON t.id = r.thermometer_id`

// CreateThermometer inserts a new thermometer.
func (r *SQLiteRepository) CreateThermometer(ctx context.Context, t *Thermometer) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO thermometers (`+thermometerColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		nullableString(t.OwnerID),
		t.DisplayName,
		boolToInt(t.Registered),
		nullableTime(t.RegisteredAt),
		t.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: therm_id already exists", ErrInvalidInput)
		}
		return fmt.Errorf("inserting thermometer: %w", err)
	}
	return nil
}

// GetThermometer retrieves a thermometer by id, readings attached.
func (r *SQLiteRepository) GetThermometer(ctx context.Context, id string) (*Thermometer, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+thermometerColumns+" FROM thermometers WHERE id = ?", id)

	t, err := scanThermometer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThermometerNotFound
		}
		return nil, fmt.Errorf("querying thermometer: %w", err)
	}

	readings, err := r.queryReadings(ctx,
		"SELECT "+readingColumns+" WHERE r.thermometer_id = ? ORDER BY r.recorded_at, r.id", id)
	if err != nil {
		return nil, err
	}
	t.Readings = readings
	return t, nil
}

// ListThermometers retrieves all thermometers, creation time ascending.
func (r *SQLiteRepository) ListThermometers(ctx context.Context) ([]Thermometer, error) {
	thermometers, err := r.queryThermometers(ctx,
		"SELECT "+thermometerColumns+" FROM thermometers ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	readings, err := r.queryReadings(ctx,
		"SELECT "+readingColumns+" ORDER BY r.recorded_at, r.id")
	if err != nil {
		return nil, err
	}
	return attachReadings(thermometers, readings), nil
}

// ListThermometersByOwner retrieves the owner's thermometers, creation time ascending.
func (r *SQLiteRepository) ListThermometersByOwner(ctx context.Context, ownerID string) ([]Thermometer, error) {
	thermometers, err := r.queryThermometers(ctx,
		"SELECT "+thermometerColumns+" FROM thermometers WHERE owner_id = ? ORDER BY created_at, id", ownerID)
	if err != nil {
		return nil, err
	}
	readings, err := r.queryReadings(ctx,
		"SELECT "+readingColumns+" WHERE t.owner_id = ? ORDER BY r.recorded_at, r.id", ownerID)
	if err != nil {
		return nil, err
	}
	return attachReadings(thermometers, readings), nil
}

// Register performs the one-time registration transition.
//
// The conditional UPDATE serializes concurrent registrations: only one call
// can move registered from 0 to 1. Zero rows affected is disambiguated into
// not-found versus already-registered inside the same transaction.
func (r *SQLiteRepository) Register(ctx context.Context, id, ownerID string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx,
		`UPDATE thermometers
		 SET owner_id = ?, registered = 1, registered_at = ?
		 WHERE id = ? AND registered = 0`,
		ownerID, at.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("registering thermometer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		var registered int
		err := tx.QueryRowContext(ctx, "SELECT registered FROM thermometers WHERE id = ?", id).Scan(&registered)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrThermometerNotFound
		}
		if err != nil {
			return fmt.Errorf("checking thermometer state: %w", err)
		}
		return ErrAlreadyRegistered
	}

	return tx.Commit()
}

// UpdateThermometer applies a display name change and appends readings in
// one transaction: either the name is saved and every reading in the batch
// is created, or nothing is.
func (r *SQLiteRepository) UpdateThermometer(ctx context.Context, id string, displayName *string, readings []TemperatureReading) ([]TemperatureReading, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM thermometers WHERE id = ?", id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking thermometer exists: %w", err)
	}
	if exists == 0 {
		return nil, ErrThermometerNotFound
	}

	if displayName != nil {
		if _, err := tx.ExecContext(ctx,
			"UPDATE thermometers SET display_name = ? WHERE id = ?", *displayName, id); err != nil {
			return nil, fmt.Errorf("updating display name: %w", err)
		}
	}

	created := make([]TemperatureReading, 0, len(readings))
	for _, reading := range readings {
		if reading.RecordedAt.IsZero() {
			reading.RecordedAt = time.Now().UTC()
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO temperature_readings (thermometer_id, degrees_micro, recorded_at)
			 VALUES (?, ?, ?)`,
			id, int64(reading.DegreesCelsius), reading.RecordedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting reading: %w", err)
		}
		reading.ID, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading insert id: %w", err)
		}
		reading.ThermometerID = id
		created = append(created, reading)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return created, nil
}

// DeleteThermometer removes a thermometer. The readings cascade is handled
// by the foreign key inside the same implicit transaction.
func (r *SQLiteRepository) DeleteThermometer(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM thermometers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting thermometer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrThermometerNotFound
	}
	return nil
}

// GetReading retrieves a reading by id.
func (r *SQLiteRepository) GetReading(ctx context.Context, id int64) (*TemperatureReading, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+readingColumns+" WHERE r.id = ?", id)
	reading, err := scanReading(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, fmt.Errorf("querying reading: %w", err)
	}
	return reading, nil
}

// ListReadings retrieves all readings, recorded time ascending.
func (r *SQLiteRepository) ListReadings(ctx context.Context) ([]TemperatureReading, error) {
	return r.queryReadings(ctx, "SELECT "+readingColumns+" ORDER BY r.recorded_at, r.id")
}

// ListReadingsByOwner retrieves the owner's readings, recorded time ascending.
func (r *SQLiteRepository) ListReadingsByOwner(ctx context.Context, ownerID string) ([]TemperatureReading, error) {
	return r.queryReadings(ctx,
		"SELECT "+readingColumns+" WHERE t.owner_id = ? ORDER BY r.recorded_at, r.id", ownerID)
}

// queryThermometers executes a query and returns a slice of thermometers.
func (r *SQLiteRepository) queryThermometers(ctx context.Context, query string, args ...any) ([]Thermometer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying thermometers: %w", err)
	}
	defer rows.Close()

	var thermometers []Thermometer
	for rows.Next() {
		t, err := scanThermometer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning thermometer: %w", err)
		}
		thermometers = append(thermometers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating thermometers: %w", err)
	}
	return thermometers, nil
}

// queryReadings executes a query and returns a slice of readings.
func (r *SQLiteRepository) queryReadings(ctx context.Context, query string, args ...any) ([]TemperatureReading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var readings []TemperatureReading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// attachReadings groups readings under their thermometers, preserving the
// recorded-time order of each group.
func attachReadings(thermometers []Thermometer, readings []TemperatureReading) []Thermometer {
	byThermometer := make(map[string][]TemperatureReading)
	for _, reading := range readings {
		byThermometer[reading.ThermometerID] = append(byThermometer[reading.ThermometerID], reading)
	}
	for i := range thermometers {
		thermometers[i].Readings = byThermometer[thermometers[i].ID]
	}
	return thermometers
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanThermometer scans a row into a Thermometer.
func scanThermometer(scanner rowScanner) (*Thermometer, error) {
	var t Thermometer
	var ownerID, registeredAt sql.NullString
	var registered int
	var createdAt string

	if err := scanner.Scan(&t.ID, &ownerID, &t.DisplayName, &registered, &registeredAt, &createdAt); err != nil {
		return nil, err
	}

	t.Registered = registered != 0
	if ownerID.Valid {
		t.OwnerID = &ownerID.String
	}
	if registeredAt.Valid {
		at, err := time.Parse(time.RFC3339Nano, registeredAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing registered_at: %w", err)
		}
		t.RegisteredAt = &at
	}

	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &t, nil
}

// scanReading scans a row into a TemperatureReading.
func scanReading(scanner rowScanner) (*TemperatureReading, error) {
	var reading TemperatureReading
	var ownerID sql.NullString
	var micro int64
	var recordedAt string

	if err := scanner.Scan(&reading.ID, &reading.ThermometerID, &reading.ThermometerName, &ownerID, &micro, &recordedAt); err != nil {
		return nil, err
	}

	reading.DegreesCelsius = Degrees(micro)
	if ownerID.Valid {
		reading.OwnerID = &ownerID.String
	}

	var err error
	if reading.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return nil, fmt.Errorf("parsing recorded_at: %w", err)
	}
	return &reading, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableTime returns a sql.NullString for optional time pointers.
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks for a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
