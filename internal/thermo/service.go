package thermo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thermocloud/core/internal/identity"
)

// Logger defines the logging interface used by the services.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ReadingRecorder mirrors accepted readings into a time-series store.
// The SQLite repository remains the source of truth; mirroring is
// fire-and-forget.
type ReadingRecorder interface {
	RecordReading(thermometerID string, degreesC float64, recordedAt time.Time)
}

// ThermometerService orchestrates thermometer operations against the
// Repository, applying the access Policy before every state transition or
// query. Both collaborators are injected at construction; the service holds
// no other mutable state.
type ThermometerService struct {
	repo     Repository
	policy   Policy
	events   EventSink
	recorder ReadingRecorder
	logger   Logger
}

// NewThermometerService creates a thermometer service.
func NewThermometerService(repo Repository, policy Policy) *ThermometerService {
	return &ThermometerService{
		repo:   repo,
		policy: policy,
		events: noopSink{},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *ThermometerService) SetLogger(logger Logger) {
	s.logger = logger
}

// SetEventSink sets the sink for domain events.
func (s *ThermometerService) SetEventSink(sink EventSink) {
	if sink != nil {
		s.events = sink
	}
}

// SetRecorder sets the time-series mirror for accepted readings.
func (s *ThermometerService) SetRecorder(recorder ReadingRecorder) {
	s.recorder = recorder
}

// Create constructs a new thermometer and immediately registers it to the
// calling principal, so every thermometer created through the service has
// an owner from birth. Input containing readings is rejected: history can
// only accumulate after creation, through Update.
func (s *ThermometerService) Create(ctx context.Context, p identity.Principal, input CreateInput) (*Thermometer, error) {
	if !s.policy.CanCreateThermometer(p) {
		return nil, fmt.Errorf("%w: authentication required", ErrForbidden)
	}
	if len(input.Temperatures) > 0 {
		return nil, fmt.Errorf("%w: new thermometers cannot be created with temperature readings", ErrInvalidInput)
	}

	id := uuid.NewString()
	if input.ThermID != nil && *input.ThermID != "" {
		if err := ValidateThermID(*input.ThermID); err != nil {
			return nil, err
		}
		id = *input.ThermID
	}

	name := DefaultDisplayName
	if input.DisplayName != nil {
		if err := ValidateDisplayName(*input.DisplayName); err != nil {
			return nil, err
		}
		name = *input.DisplayName
	}

	now := time.Now().UTC()
	owner := p.ID
	t := &Thermometer{
		ID:           id,
		OwnerID:      &owner,
		DisplayName:  name,
		Registered:   true,
		RegisteredAt: &now,
		CreatedAt:    now,
	}

	if err := s.repo.CreateThermometer(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("thermometer created", "therm_id", t.ID, "owner", owner)
	s.events.Publish(EventThermometerCreated, map[string]any{
		"therm_id": t.ID,
		"owner":    owner,
	})
	return t, nil
}

// Register performs the one-time registration of an existing unowned
// thermometer to the calling principal. Re-registration and owner transfer
// are not possible through this path.
func (s *ThermometerService) Register(ctx context.Context, p identity.Principal, id string) (*Thermometer, error) {
	if p.IsZero() {
		return nil, fmt.Errorf("%w: authentication required", ErrForbidden)
	}

	if err := s.repo.Register(ctx, id, p.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	s.logger.Info("thermometer registered", "therm_id", id, "owner", p.ID)
	s.events.Publish(EventThermometerRegistered, map[string]any{
		"therm_id": id,
		"owner":    p.ID,
	})
	return s.repo.GetThermometer(ctx, id)
}

// Get returns the thermometer with its readings.
func (s *ThermometerService) Get(ctx context.Context, p identity.Principal, id string) (*Thermometer, error) {
	t, err := s.repo.GetThermometer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanReadThermometer(p, t) {
		return nil, ErrForbidden
	}
	return t, nil
}

// List returns every thermometer the principal may see, creation time
// ascending: all of them for staff, otherwise only the principal's own.
func (s *ThermometerService) List(ctx context.Context, p identity.Principal) ([]Thermometer, error) {
	if p.IsZero() {
		return nil, fmt.Errorf("%w: authentication required", ErrForbidden)
	}
	if p.Staff {
		return s.repo.ListThermometers(ctx)
	}
	return s.repo.ListThermometersByOwner(ctx, p.ID)
}

// Update applies a partial update. The display name is the only patchable
// field; temperatures in the patch are appended as new readings, the only
// path by which readings attach to a thermometer. The name change
// and the reading batch commit atomically.
func (s *ThermometerService) Update(ctx context.Context, p identity.Principal, id string, input UpdateInput) (*Thermometer, error) {
	t, err := s.repo.GetThermometer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanWriteThermometer(p, t) {
		return nil, ErrForbidden
	}

	if input.DisplayName != nil {
		if err := ValidateDisplayName(*input.DisplayName); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	readings := make([]TemperatureReading, 0, len(input.Temperatures))
	for _, sample := range input.Temperatures {
		if err := ValidateDegrees(sample.DegreesCelsius); err != nil {
			return nil, err
		}
		readings = append(readings, TemperatureReading{
			DegreesCelsius: sample.DegreesCelsius,
			RecordedAt:     now,
		})
	}

	created, err := s.repo.UpdateThermometer(ctx, id, input.DisplayName, readings)
	if err != nil {
		return nil, err
	}

	owner := ownerValue(t.OwnerID)
	if input.DisplayName != nil {
		s.events.Publish(EventThermometerUpdated, map[string]any{
			"therm_id":     id,
			"owner":        owner,
			"display_name": *input.DisplayName,
		})
	}
	for _, reading := range created {
		s.events.Publish(EventReadingRecorded, map[string]any{
			"therm_id":  id,
			"owner":     owner,
			"id":        reading.ID,
			"degrees_c": reading.DegreesCelsius,
		})
		if s.recorder != nil {
			s.recorder.RecordReading(id, reading.DegreesCelsius.Float64(), reading.RecordedAt)
		}
	}
	s.logger.Debug("thermometer updated", "therm_id", id, "readings_appended", len(created))

	return s.repo.GetThermometer(ctx, id)
}

// Delete removes the thermometer and all of its readings atomically.
func (s *ThermometerService) Delete(ctx context.Context, p identity.Principal, id string) error {
	t, err := s.repo.GetThermometer(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.CanWriteThermometer(p, t) {
		return ErrForbidden
	}

	if err := s.repo.DeleteThermometer(ctx, id); err != nil {
		return err
	}

	s.logger.Info("thermometer deleted", "therm_id", id, "readings_removed", len(t.Readings))
	s.events.Publish(EventThermometerDeleted, map[string]any{
		"therm_id": id,
		"owner":    ownerValue(t.OwnerID),
	})
	return nil
}

// ownerValue dereferences an owner reference for event payloads; an
// unregistered thermometer yields the empty string.
func ownerValue(owner *string) string {
	if owner == nil {
		return ""
	}
	return *owner
}
