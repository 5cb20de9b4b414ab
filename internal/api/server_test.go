package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finance/internal/db"
	"finance/internal/identity"
	"finance/internal/models"
	"finance/internal/service"
	"finance/internal/store"
	"finance/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const testJWTSecret = "test-secret-that-is-long-enough-for-hs256"

const (
	aliceID = "11111111-1111-1111-1111-111111111111"
	bobID   = "22222222-2222-2222-2222-222222222222"
)

type fakeProvider struct {
	signUps int
}

func (p *fakeProvider) SignUp(_ context.Context, email, _ string) (*models.SignUpResponse, error) {
	p.signUps++
	return &models.SignUpResponse{User: &models.AuthUser{ID: "new-user", Email: email}}, nil
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (*models.SignInResponse, error) {
	if password != "secret123" {
		return nil, &identity.ProviderError{Status: http.StatusBadRequest, Message: "Invalid login credentials"}
	}
	return &models.SignInResponse{
		User:        &models.AuthUser{ID: aliceID, Email: email},
		Session:     &models.Session{AccessToken: "at", TokenType: "bearer"},
		AccessToken: "at",
	}, nil
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testEnv struct {
	server   *Server
	provider *fakeProvider
	alice    string
	bob      string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), false)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close(database) })

	logger := zap.NewNop()
	transactionStore := store.NewTransactionStore(database)
	registration := service.NewRegistrationService(
		store.NewFileSettingsStore(filepath.Join(t.TempDir(), "settings.json")), logger)
	provider := &fakeProvider{}

	server := NewServer(Options{
		Transactions: service.NewTransactionService(transactionStore, logger),
		Auth:         service.NewAuthService(provider, identity.NewJWTVerifier(testJWTSecret), registration, logger),
		Registration: registration,
		DB:           transactionStore,
		Logger:       logger,
	})

	return &testEnv{
		server:   server,
		provider: provider,
		alice:    generateTestToken(t, aliceID, "alice@example.com"),
		bob:      generateTestToken(t, bobID, "bob@example.com"),
	}
}

func generateTestToken(t *testing.T, userID, email string) string {
	t.Helper()
	token, err := identity.GenerateToken(testJWTSecret, userID, email, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	switch p := payload.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case string:
		body = bytes.NewReader([]byte(p))
	default:
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("Failed to marshal request payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func createTestTransaction(t *testing.T, e *testEnv, token, typ, amount string) models.Transaction {
	t.Helper()
	payload := fmt.Sprintf(`{"name":"Groceries","title":"Weekly shop","type":%q,"amount":%s}`, typ, amount)
	w := e.do(t, http.MethodPost, "/transactions", token, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create transaction: %d %s", w.Code, w.Body.String())
	}
	var tx models.Transaction
	if err := json.NewDecoder(w.Body).Decode(&tx); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return tx
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorBody {
	t.Helper()
	var resp utils.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp.Error
}

func TestHealth(t *testing.T) {
	e := setupTestServer(t)

	w := e.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	e.server.db = downPinger{}
	w = e.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	e := setupTestServer(t)

	tests := []struct {
		name           string
		token          string
		payload        string
		expectedStatus int
	}{
		{
			name:           "Valid Transaction",
			token:          e.alice,
			payload:        `{"name":"Salary","title":"June","type":"income","amount":2500.5,"date":"2024-06-01"}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "No Token",
			payload:        `{"name":"Salary","title":"June","type":"income","amount":10}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Client Supplied Owner",
			token:          e.alice,
			payload:        `{"name":"Salary","title":"June","type":"income","amount":10,"user_id":"` + bobID + `"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Zero Amount",
			token:          e.alice,
			payload:        `{"name":"Salary","title":"June","type":"income","amount":0}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid Type",
			token:          e.alice,
			payload:        `{"name":"Salary","title":"June","type":"transfer","amount":10}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Malformed JSON",
			token:          e.alice,
			payload:        `{"name":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/transactions", tt.token, tt.payload)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusCreated {
				var tx models.Transaction
				if err := json.NewDecoder(w.Body).Decode(&tx); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if tx.UserID != aliceID {
					t.Errorf("Expected owner %s, got %s", aliceID, tx.UserID)
				}
				if !tx.Amount.Equal(decimal.RequireFromString("2500.5")) {
					t.Errorf("Expected amount 2500.5, got %s", tx.Amount)
				}
			}
		})
	}
}

func TestListTransactions(t *testing.T) {
	e := setupTestServer(t)

	for i := 1; i <= 12; i++ {
		createTestTransaction(t, e, e.alice, "outcome", fmt.Sprintf("%d", i))
	}
	createTestTransaction(t, e, e.bob, "income", "500")

	tests := []struct {
		name               string
		query              string
		expectedStatus     int
		expectedRows       int
		expectedTotal      int64
		expectedTotalPages int
		expectedLimit      int
	}{
		{name: "Second Page", query: "?page=2&limit=5", expectedStatus: http.StatusOK, expectedRows: 5, expectedTotal: 12, expectedTotalPages: 3},
		{name: "Last Page", query: "?page=3&limit=5", expectedStatus: http.StatusOK, expectedRows: 2, expectedTotal: 12, expectedTotalPages: 3},
		{name: "Type Filter", query: "?type=income", expectedStatus: http.StatusOK, expectedRows: 0, expectedTotal: 0, expectedTotalPages: 0},
		{name: "Limit Above Maximum", query: "?limit=200", expectedStatus: http.StatusOK, expectedRows: 12, expectedTotal: 12, expectedTotalPages: 1, expectedLimit: 100},
		{name: "Invalid Limit", query: "?limit=0", expectedStatus: http.StatusBadRequest},
		{name: "Invalid Order", query: "?orderBy=name", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodGet, "/transactions"+tt.query, e.alice, nil)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				if code := decodeError(t, w).Code; code != "validation_error" {
					t.Errorf("Expected validation_error, got %s", code)
				}
				return
			}

			var page models.TransactionPage
			if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(page.Data) != tt.expectedRows {
				t.Errorf("Expected %d rows, got %d", tt.expectedRows, len(page.Data))
			}
			if page.Pagination.Total != tt.expectedTotal || page.Pagination.TotalPages != tt.expectedTotalPages {
				t.Errorf("Unexpected pagination %+v", page.Pagination)
			}
			if tt.expectedLimit != 0 && page.Pagination.Limit != tt.expectedLimit {
				t.Errorf("Expected effective limit %d, got %d", tt.expectedLimit, page.Pagination.Limit)
			}
			for _, tx := range page.Data {
				if tx.UserID != aliceID {
					t.Errorf("Leaked row of %s", tx.UserID)
				}
			}
		})
	}
}

func TestGetSummary(t *testing.T) {
	e := setupTestServer(t)

	createTestTransaction(t, e, e.alice, "income", "100")
	createTestTransaction(t, e, e.alice, "outcome", "40")
	createTestTransaction(t, e, e.bob, "outcome", "999")

	w := e.do(t, http.MethodGet, "/transactions/summary?period=month", e.alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	expected := map[string]interface{}{
		"period":            "month",
		"income":            100.0,
		"outcome":           40.0,
		"balance":           60.0,
		"totalTransactions": 2.0,
	}
	for key, want := range expected {
		if response[key] != want {
			t.Errorf("Expected %s = %v, got %v", key, want, response[key])
		}
	}

	w = e.do(t, http.MethodGet, "/transactions/summary?period=decade", e.alice, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d for an unknown period, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestTransactionByID(t *testing.T) {
	e := setupTestServer(t)
	tx := createTestTransaction(t, e, e.alice, "outcome", "15")
	path := "/transactions/" + tx.ID.String()

	t.Run("Owner Reads", func(t *testing.T) {
		w := e.do(t, http.MethodGet, path, e.alice, nil)
		if w.Code != http.StatusOK {
			t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
		}
	})

	t.Run("Malformed ID", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/transactions/not-a-uuid", e.alice, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})

	t.Run("Other User Cannot Touch", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
			var payload interface{}
			if method == http.MethodPatch {
				payload = `{"title":"mine now"}`
			}
			w := e.do(t, method, path, e.bob, payload)
			if w.Code != http.StatusNotFound {
				t.Errorf("%s: expected status %d, got %d", method, http.StatusNotFound, w.Code)
			}
		}
	})

	t.Run("Owner Updates", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, path, e.alice, `{"title":"Monthly shop","amount":17.25}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		var updated models.Transaction
		if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if updated.Title != "Monthly shop" || updated.Name != tx.Name {
			t.Errorf("Unexpected update result %+v", updated)
		}
		if updated.UpdatedAt == nil {
			t.Error("Expected updated_at to be set")
		}
	})

	t.Run("Null Clears Description", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, path, e.alice, `{"description":"split with flatmate"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		w = e.do(t, http.MethodPatch, path, e.alice, `{"description":null}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		var updated map[string]interface{}
		if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if v, ok := updated["description"]; !ok || v != nil {
			t.Errorf("Expected description to be null, got %v", v)
		}
	})

	t.Run("Update Rejects Owner Change", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, path, e.alice, `{"user_id":"`+bobID+`"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("Owner Deletes", func(t *testing.T) {
		w := e.do(t, http.MethodDelete, path, e.alice, nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected status %d, got %d", http.StatusNoContent, w.Code)
		}
		w = e.do(t, http.MethodGet, path, e.alice, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status %d after delete, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestRegistrationToggle(t *testing.T) {
	e := setupTestServer(t)
	signUp := `{"email":"new@example.com","password":"secret123"}`

	w := e.do(t, http.MethodPost, "/auth/sign-up", "", signUp)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodPost, "/settings/registration/toggle", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected toggle without token to be rejected, got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/settings/registration/toggle", e.alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var status models.RegistrationStatus
	json.NewDecoder(w.Body).Decode(&status)
	if status.Enabled || status.Message != "registration disabled" {
		t.Errorf("Unexpected toggle response %+v", status)
	}

	w = e.do(t, http.MethodPost, "/auth/sign-up", "", signUp)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status %d while registration is disabled, got %d", http.StatusForbidden, w.Code)
	}
	if e.provider.signUps != 1 {
		t.Errorf("Expected the provider not to be called while disabled, got %d calls", e.provider.signUps)
	}

	w = e.do(t, http.MethodPost, "/settings/registration/toggle", e.alice, `{"enabled":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	w = e.do(t, http.MethodGet, "/settings/registration", e.alice, nil)
	json.NewDecoder(w.Body).Decode(&status)
	if !status.Enabled {
		t.Error("Expected registration to be enabled again")
	}
}

func TestSignIn(t *testing.T) {
	e := setupTestServer(t)

	tests := []struct {
		name           string
		payload        string
		expectedStatus int
	}{
		{name: "Valid Credentials", payload: `{"email":"alice@example.com","password":"secret123"}`, expectedStatus: http.StatusOK},
		{name: "Wrong Password", payload: `{"email":"alice@example.com","password":"nope"}`, expectedStatus: http.StatusUnauthorized},
		{name: "Missing Email", payload: `{"password":"secret123"}`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/auth/sign-in", "", tt.payload)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				var resp models.SignInResponse
				json.NewDecoder(w.Body).Decode(&resp)
				if resp.AccessToken != "at" {
					t.Errorf("Expected accessToken at, got %q", resp.AccessToken)
				}
			}
		})
	}
}

func TestExportTransactions(t *testing.T) {
	e := setupTestServer(t)
	for i := 0; i < 3; i++ {
		createTestTransaction(t, e, e.alice, "income", "12.5")
	}
	createTestTransaction(t, e, e.bob, "income", "1")

	t.Run("CSV", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/transactions/export", e.alice, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
		}
		if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
			t.Errorf("Unexpected content type %q", w.Header().Get("Content-Type"))
		}
		records, err := csv.NewReader(w.Body).ReadAll()
		if err != nil {
			t.Fatalf("Failed to parse CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("Expected header and 3 rows, got %d records", len(records))
		}
		if records[1][6] != "12.50" {
			t.Errorf("Expected amount 12.50, got %s", records[1][6])
		}
	})

	t.Run("XLSX", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/transactions/export?format=xlsx", e.alice, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
		}
		f, err := excelize.OpenReader(w.Body)
		if err != nil {
			t.Fatalf("Failed to open workbook: %v", err)
		}
		defer f.Close()
		rows, err := f.GetRows(exportSheet)
		if err != nil {
			t.Fatalf("Failed to read rows: %v", err)
		}
		if len(rows) != 4 {
			t.Errorf("Expected header and 3 rows, got %d", len(rows))
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/transactions/export?format=pdf", e.alice, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestToggleRegistrationChunkedEmptyBody(t *testing.T) {
	e := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/settings/registration/toggle", strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Authorization", "Bearer "+e.alice)
	w := httptest.NewRecorder()

	e.server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var status models.RegistrationStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if status.Enabled {
		t.Error("Expected an empty body to flip registration off")
	}
}
