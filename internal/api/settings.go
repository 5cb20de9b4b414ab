package api

import (
	"net/http"

	"finance/internal/models"
	"finance/internal/utils"
)

func (s *Server) getRegistration(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, models.RegistrationStatus{
		Enabled: s.registration.IsEnabled(r.Context()),
	})
}

// toggleRegistration sets the flag when "enabled" is given and flips it otherwise.
func (s *Server) toggleRegistration(w http.ResponseWriter, r *http.Request) {
	var req models.ToggleRegistrationRequest
	if _, err := utils.DecodeOptionalJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	var enabled bool
	if req.Enabled != nil {
		enabled = *req.Enabled
		if err := s.registration.Set(r.Context(), enabled); err != nil {
			s.fail(w, r, err)
			return
		}
	} else {
		var err error
		if enabled, err = s.registration.Toggle(r.Context()); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	message := "registration disabled"
	if enabled {
		message = "registration enabled"
	}
	utils.WriteJSON(w, http.StatusOK, models.RegistrationStatus{Enabled: enabled, Message: message})
}
