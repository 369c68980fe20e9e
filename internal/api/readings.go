package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListReadings returns the readings visible to the caller: every
// reading for staff, readings on owned thermometers otherwise.
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.readings.List(r.Context(), requestPrincipal(r))
	if err != nil {
		s.writeDomainError(w, err, "failed to list readings")
		return
	}
	writeJSON(w, http.StatusOK, newReadingViews(readings))
}

// handleGetReading returns a single reading by ID.
func (s *Server) handleGetReading(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeNotFound(w, "not found")
		return
	}

	reading, err := s.readings.Get(r.Context(), requestPrincipal(r), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to get reading")
		return
	}

	writeJSON(w, http.StatusOK, newReadingView(reading))
}

// handleReadingWriteAttempt rejects every write method on readings.
// Readings are created only by appending temperatures through a
// thermometer update and deleted only by the thermometer cascade.
func (s *Server) handleReadingWriteAttempt(w http.ResponseWriter, _ *http.Request) {
	writeMethodNotAllowed(w, "method not allowed")
}
