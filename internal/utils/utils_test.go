package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finance/internal/service"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedCode    string
		expectedMessage string
	}{
		{name: "Validation", err: service.Validation("amount must be at least %s", "0.01"), expectedStatus: http.StatusBadRequest, expectedCode: "validation_error", expectedMessage: "amount must be at least 0.01"},
		{name: "Unauthorized", err: service.Unauthorized("token is missing"), expectedStatus: http.StatusUnauthorized, expectedCode: "unauthorized", expectedMessage: "token is missing"},
		{name: "Forbidden", err: service.Forbidden("registration disabled"), expectedStatus: http.StatusForbidden, expectedCode: "forbidden", expectedMessage: "registration disabled"},
		{name: "Not Found", err: service.NotFound("transaction not found"), expectedStatus: http.StatusNotFound, expectedCode: "not_found", expectedMessage: "transaction not found"},
		{name: "Upstream Hides Cause", err: service.Upstream("failed to list transactions", errors.New("pq: password authentication failed")), expectedStatus: http.StatusInternalServerError, expectedCode: "internal_error", expectedMessage: "failed to list transactions"},
		{name: "Plain Error", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError, expectedCode: "internal_error", expectedMessage: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body.Error.Code != tt.expectedCode || body.Error.Message != tt.expectedMessage {
				t.Errorf("Unexpected body %+v", body)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name          string
		body          string
		expectedError bool
	}{
		{name: "Valid", body: `{"name":"rent"}`},
		{name: "Empty Body", body: ``, expectedError: true},
		{name: "Unknown Field", body: `{"name":"rent","user_id":"someone-else"}`, expectedError: true},
		{name: "Trailing Data", body: `{"name":"rent"}{"name":"again"}`, expectedError: true},
		{name: "Malformed", body: `{"name":`, expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if tt.expectedError {
				if service.KindOf(err) != service.KindValidation {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil || p.Name != "rent" {
				t.Errorf("Expected name rent, got %q (%v)", p.Name, err)
			}
		})
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	type payload struct {
		Enabled *bool `json:"enabled"`
	}

	tests := []struct {
		name            string
		body            string
		contentLength   int64
		expectedPresent bool
		expectedError   bool
	}{
		{name: "Empty Body", body: "", contentLength: 0},
		{name: "Chunked Empty Body", body: "", contentLength: -1},
		{name: "Whitespace Only", body: "  \n", contentLength: -1},
		{name: "Chunked Body", body: `{"enabled":false}`, contentLength: -1, expectedPresent: true},
		{name: "Malformed", body: `{"enabled":`, contentLength: -1, expectedPresent: true, expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength

			var p payload
			present, err := DecodeOptionalJSON(req, &p)
			if present != tt.expectedPresent {
				t.Errorf("Expected present=%v, got %v", tt.expectedPresent, present)
			}
			if tt.expectedError {
				if service.KindOf(err) != service.KindValidation {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.expectedPresent && (p.Enabled == nil || *p.Enabled) {
				t.Errorf("Expected enabled=false, got %v", p.Enabled)
			}
		})
	}
}
