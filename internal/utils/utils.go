package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"finance/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// GetIDFromPath parses the {id} URL parameter as a UUID.
func GetIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError renders err as a JSON error body. Only the client-safe message
// of a service error is written; causes stay in the logs.
func WriteError(w http.ResponseWriter, err error) {
	kind := service.KindOf(err)
	msg := "internal server error"
	var se *service.Error
	if errors.As(err, &se) {
		msg = se.Message
	}
	WriteJSON(w, StatusFor(kind), ErrorResponse{Error: ErrorBody{Code: kind.String(), Message: msg}})
}

func StatusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads a JSON body into v, rejecting unknown fields and
// trailing data.
func DecodeJSON(r *http.Request, v interface{}) error {
	present, err := decodeBody(r, v)
	if err != nil {
		return err
	}
	if !present {
		return service.Validation("request body is required")
	}
	return nil
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be empty. It
// reports whether a body was present, whatever the Content-Length header says.
func DecodeOptionalJSON(r *http.Request, v interface{}) (bool, error) {
	return decodeBody(r, v)
}

func decodeBody(r *http.Request, v interface{}) (bool, error) {
	if r.Body == nil {
		return false, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return true, service.Validation("invalid request body: %v", err)
	}
	if dec.More() {
		return true, service.Validation("invalid request body: unexpected data after JSON object")
	}
	return true, nil
}
