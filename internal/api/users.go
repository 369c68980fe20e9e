package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thermocloud/core/internal/auth"
)

// userView is the serialized form of a user account. Password material
// never leaves the auth package.
type userView struct {
	URL         string `json:"url"`
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Staff       bool   `json:"is_staff"`
}

// handleGetUser returns a user account. Callers may fetch themselves;
// staff may fetch anyone. This backs the owner URLs in thermometer
// payloads.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p := requestPrincipal(r)
	if !p.Staff && p.ID != id {
		writeForbidden(w, "you do not have permission to perform this action")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "not found")
			return
		}
		writeInternalError(w, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, userView{
		URL:         userURL(user.ID),
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Staff:       user.Staff,
	})
}
