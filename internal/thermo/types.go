package thermo

import "time"

// Thermometer is a networked thermometer known to the registry.
//
// A thermometer starts life unowned and unregistered. Registration binds it
// to exactly one owner, exactly once; the three registration fields move
// together and never revert (enforced by the schema CHECK constraint and
// the repository's conditional register transition).
type Thermometer struct {
	// ID is the stable unique identifier (UUID), assigned at creation.
	ID string `json:"therm_id"`

	// OwnerID references the owning principal; nil until registered.
	OwnerID *string `json:"owner"`

	// DisplayName is free text, at most 75 characters.
	DisplayName string `json:"display_name"`

	// Registered reports whether the one-time registration has happened.
	Registered bool `json:"registered"`

	// RegisteredAt is set exactly once, at registration.
	RegisteredAt *time.Time `json:"registration_date"`

	// CreatedAt is set at creation and never changes.
	CreatedAt time.Time `json:"created_date"`

	// Readings are the thermometer's temperature samples, recorded_at
	// ascending. Populated by Get and List.
	Readings []TemperatureReading `json:"temperatures"`
}

// DefaultDisplayName is used when a thermometer is created without a name.
const DefaultDisplayName = "Thermometer Name Not Provided"

// TemperatureReading is a single temperature sample, permanently bound to
// one thermometer. Readings are immutable after creation and are deleted
// only via the thermometer cascade.
type TemperatureReading struct {
	// ID is assigned by the store at creation.
	ID int64 `json:"id"`

	// ThermometerID references the owning thermometer.
	ThermometerID string `json:"-"`

	// ThermometerName is the parent's display name, denormalised for
	// serialization so reading payloads expose no owner data.
	ThermometerName string `json:"thermometer"`

	// OwnerID is the parent thermometer's owner, loaded for access checks
	// and never serialised.
	OwnerID *string `json:"-"`

	// DegreesCelsius is the sample value with microdegree precision.
	DegreesCelsius Degrees `json:"degrees_c"`

	// RecordedAt defaults to creation time and never changes.
	RecordedAt time.Time `json:"time_recorded"`
}

// CreateInput carries the caller-settable fields for a new thermometer.
// Any supplied temperatures are rejected: thermometers are never created
// pre-populated with history.
type CreateInput struct {
	ThermID      *string        `json:"therm_id"`
	DisplayName  *string        `json:"display_name"`
	Temperatures []ReadingInput `json:"temperatures"`
}

// UpdateInput carries the patchable fields of a thermometer. Supplied
// temperatures are appended as new readings, the only path by which
// readings attach to an existing thermometer. Owner, registration and
// creation fields are never settable.
type UpdateInput struct {
	DisplayName  *string        `json:"display_name"`
	Temperatures []ReadingInput `json:"temperatures"`
}

// ReadingInput is a single temperature sample in a create/update payload.
type ReadingInput struct {
	DegreesCelsius Degrees `json:"degrees_c"`
}
