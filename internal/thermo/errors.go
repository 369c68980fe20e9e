package thermo

import "errors"

// Domain errors for the thermo package.
//
// Callers branch on kind with errors.Is():
//
//	if errors.Is(err, thermo.ErrForbidden) {
//	    // authorization denial, never retried
//	}
var (
	// ErrThermometerNotFound is returned when a thermometer id does not exist.
	ErrThermometerNotFound = errors.New("thermo: thermometer not found")

	// ErrReadingNotFound is returned when a reading id does not exist.
	ErrReadingNotFound = errors.New("thermo: reading not found")

	// ErrForbidden is returned when the principal is not permitted to see
	// or modify the resource. Never retried.
	ErrForbidden = errors.New("thermo: forbidden")

	// ErrInvalidInput is returned when validation fails. Wrapped errors
	// carry field detail.
	ErrInvalidInput = errors.New("thermo: invalid input")

	// ErrAlreadyRegistered is returned when registering a thermometer that
	// already has an owner. Permanent conflict, never retried.
	ErrAlreadyRegistered = errors.New("thermo: thermometer already registered")

	// ErrMethodNotAllowed is returned for structurally unsupported
	// operations: readings are append-only and cannot be created, updated
	// or deleted through the reading service surface.
	ErrMethodNotAllowed = errors.New("thermo: method not allowed")
)
