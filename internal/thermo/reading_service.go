package thermo

import (
	"context"
	"fmt"

	"github.com/thermocloud/core/internal/identity"
)

// ReadingService provides read-only access to temperature readings.
//
// Readings are append-only: the only creation path is the thermometer
// update batch, and nothing may mutate or remove an individual reading.
// The write methods exist so callers get a structural "method not allowed"
// outcome, distinct from an authorization deny.
type ReadingService struct {
	repo   Repository
	policy Policy
}

// NewReadingService creates a reading service.
func NewReadingService(repo Repository, policy Policy) *ReadingService {
	return &ReadingService{repo: repo, policy: policy}
}

// List returns every reading the principal may see, recorded time
// ascending: all of them for staff, otherwise only readings on the
// principal's own thermometers.
func (s *ReadingService) List(ctx context.Context, p identity.Principal) ([]TemperatureReading, error) {
	if p.IsZero() {
		return nil, fmt.Errorf("%w: authentication required", ErrForbidden)
	}
	if p.Staff {
		return s.repo.ListReadings(ctx)
	}
	return s.repo.ListReadingsByOwner(ctx, p.ID)
}

// Get returns a single reading. The payload exposes the parent
// thermometer's display name only, never its owner.
func (s *ReadingService) Get(ctx context.Context, p identity.Principal, id int64) (*TemperatureReading, error) {
	reading, err := s.repo.GetReading(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanReadReading(p, reading) {
		return nil, ErrForbidden
	}
	return reading, nil
}

// Create always fails: readings enter the system via thermometer update only.
func (s *ReadingService) Create(context.Context, identity.Principal, ReadingInput) (*TemperatureReading, error) {
	return nil, fmt.Errorf("%w: readings are created via thermometer update", ErrMethodNotAllowed)
}

// Update always fails: readings are immutable after creation.
func (s *ReadingService) Update(context.Context, identity.Principal, int64, ReadingInput) (*TemperatureReading, error) {
	return nil, fmt.Errorf("%w: readings cannot be updated", ErrMethodNotAllowed)
}

// Delete always fails: readings are removed only by the thermometer cascade.
func (s *ReadingService) Delete(context.Context, identity.Principal, int64) error {
	return fmt.Errorf("%w: readings cannot be deleted", ErrMethodNotAllowed)
}
