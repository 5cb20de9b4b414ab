package api

import (
	"net/http"

	"finance/internal/middleware"
	"finance/internal/models"
	"finance/internal/service"
	"finance/internal/utils"

	"github.com/google/uuid"
)

func callerFrom(r *http.Request) (*models.Identity, error) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return nil, service.Unauthorized("authentication required")
	}
	return id, nil
}

// transactionID treats malformed ids like unknown ones.
func transactionID(r *http.Request) (uuid.UUID, error) {
	id, err := utils.GetIDFromPath(r)
	if err != nil {
		return uuid.Nil, service.NotFound("transaction not found")
	}
	return id, nil
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req models.CreateTransactionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	tx, err := s.transactions.Create(r.Context(), caller, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, tx)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	q, err := service.ParseQuerySpec(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	page, err := s.transactions.List(r.Context(), caller, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, page)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	period := models.Period(r.URL.Query().Get("period"))
	summary, err := s.transactions.Summarize(r.Context(), caller, period)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := transactionID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tx, err := s.transactions.Get(r.Context(), caller, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, tx)
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := transactionID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req models.UpdateTransactionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	tx, err := s.transactions.Update(r.Context(), caller, id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, tx)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := transactionID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.transactions.Delete(r.Context(), caller, id); err != nil {
		s.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
