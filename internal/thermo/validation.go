package thermo

import (
	"fmt"

	"github.com/google/uuid"
)

// maxDisplayNameLength matches the storage column width.
const maxDisplayNameLength = 75

// Degrees bounds. The upper bound comes from the storage definition
// (NUMERIC(10,6): four integer digits); the lower bound rejects readings
// below absolute zero as physically impossible.
const (
	maxDegreesMicro Degrees = 10_000*microPerDegree - 1 // 9999.999999
	minDegreesMicro Degrees = -273_150_000              // -273.150000
)

// ValidateDisplayName checks the display name length.
func ValidateDisplayName(name string) error {
	if len(name) > maxDisplayNameLength {
		return fmt.Errorf("%w: display_name exceeds %d characters", ErrInvalidInput, maxDisplayNameLength)
	}
	return nil
}

// ValidateDegrees checks a temperature value against the storage and
// physical bounds.
func ValidateDegrees(d Degrees) error {
	if d > maxDegreesMicro || d < -maxDegreesMicro {
		return fmt.Errorf("%w: degrees_c %s exceeds 4 integer digits", ErrInvalidInput, d)
	}
	if d < minDegreesMicro {
		return fmt.Errorf("%w: degrees_c %s is below absolute zero", ErrInvalidInput, d)
	}
	return nil
}

// ValidateThermID checks a caller-supplied thermometer id for UUID format.
func ValidateThermID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: therm_id must be a UUID", ErrInvalidInput)
	}
	return nil
}
