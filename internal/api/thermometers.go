package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thermocloud/core/internal/identity"
	"github.com/thermocloud/core/internal/thermo"
)

// writeDomainError maps domain sentinel errors to HTTP responses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, thermo.ErrThermometerNotFound), errors.Is(err, thermo.ErrReadingNotFound):
		writeNotFound(w, "not found")
	case errors.Is(err, thermo.ErrForbidden):
		writeForbidden(w, "you do not have permission to perform this action")
	case errors.Is(err, thermo.ErrInvalidInput):
		writeBadRequest(w, err.Error())
	case errors.Is(err, thermo.ErrAlreadyRegistered):
		writeConflict(w, err.Error())
	case errors.Is(err, thermo.ErrMethodNotAllowed):
		writeMethodNotAllowed(w, "method not allowed")
	default:
		s.logger.Error(fallback, "error", err)
		writeInternalError(w, fallback)
	}
}

// requestPrincipal returns the authenticated principal for the request.
// The auth middleware guarantees one is present on protected routes.
func requestPrincipal(r *http.Request) identity.Principal {
	p, _ := identity.FromContext(r.Context())
	return p
}

// handleListThermometers returns the thermometers visible to the caller:
// all of them for staff, owned ones otherwise.
func (s *Server) handleListThermometers(w http.ResponseWriter, r *http.Request) {
	thermometers, err := s.thermometers.List(r.Context(), requestPrincipal(r))
	if err != nil {
		s.writeDomainError(w, err, "failed to list thermometers")
		return
	}
	writeJSON(w, http.StatusOK, newThermometerViews(thermometers))
}

// handleCreateThermometer creates a thermometer registered to the caller.
func (s *Server) handleCreateThermometer(w http.ResponseWriter, r *http.Request) {
	var input thermo.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	created, err := s.thermometers.Create(r.Context(), requestPrincipal(r), input)
	if err != nil {
		s.writeDomainError(w, err, "failed to create thermometer")
		return
	}

	writeJSON(w, http.StatusCreated, newThermometerView(created))
}

// handleGetThermometer returns a single thermometer with its readings.
func (s *Server) handleGetThermometer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.thermometers.Get(r.Context(), requestPrincipal(r), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to get thermometer")
		return
	}

	writeJSON(w, http.StatusOK, newThermometerView(t))
}

// handleUpdateThermometer applies a partial update: display name changes
// and appended readings. Serves both PUT and PATCH.
func (s *Server) handleUpdateThermometer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input thermo.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	updated, err := s.thermometers.Update(r.Context(), requestPrincipal(r), id, input)
	if err != nil {
		s.writeDomainError(w, err, "failed to update thermometer")
		return
	}

	writeJSON(w, http.StatusOK, newThermometerView(updated))
}

// handleDeleteThermometer deletes a thermometer and cascades its readings.
func (s *Server) handleDeleteThermometer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.thermometers.Delete(r.Context(), requestPrincipal(r), id); err != nil {
		s.writeDomainError(w, err, "failed to delete thermometer")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRegisterThermometer performs the one-time registration of an
// unregistered thermometer to the caller.
func (s *Server) handleRegisterThermometer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.thermometers.Register(r.Context(), requestPrincipal(r), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to register thermometer")
		return
	}

	writeJSON(w, http.StatusOK, newThermometerView(t))
}
