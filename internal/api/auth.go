package api

import (
	"net/http"

	"finance/internal/models"
	"finance/internal/utils"
)

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if err := utils.DecodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := s.auth.SignUp(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, resp)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if err := utils.DecodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := s.auth.SignIn(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}
