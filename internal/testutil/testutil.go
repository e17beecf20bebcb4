package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"licensemanager.app/cloud/handlers"
	"licensemanager.app/cloud/internal/config"
	"licensemanager.app/cloud/licensing"
	"licensemanager.app/cloud/models"
	"licensemanager.app/cloud/storage"
)

const (
	TestAPISecret    = "test-api-secret"
	TestSessionToken = "test-session-token"

	ProductID   = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	ProductName = "AlgoTrader Pro"

	ConsumerID    = "f47ac10b-58cc-4372-a567-0e02b2c3d479"
	ConsumerEmail = "trader@example.com"
	AccountNumber = "ACC-10001"

	// A well-formed id that never resolves to a record.
	MissingID = "1b4e28ba-2fa1-4d3b-b468-98a5e4f0e2a1"
)

// TestConfig returns the configuration used by handler tests.
func TestConfig() *config.Config {
	return &config.Config{
		Port:         "8080",
		DatabaseURL:  ":memory:",
		APISecret:    TestAPISecret,
		SessionToken: TestSessionToken,
	}
}

// TestStorage creates an empty in-memory store.
func TestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage()
}

// SeedCatalog saves the standard test product and consumer.
func SeedCatalog(t *testing.T, store storage.Storage) {
	t.Helper()
	ctx := context.Background()

	now := time.Now()
	product := models.Product{
		ID:        ProductID,
		Name:      ProductName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.SaveProduct(ctx, &product); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}

	consumer := models.Consumer{
		ID:            ConsumerID,
		Name:          "Jordan Trader",
		Email:         ConsumerEmail,
		AccountNumber: AccountNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.SaveConsumer(ctx, &consumer); err != nil {
		t.Fatalf("Failed to save consumer: %v", err)
	}
}

// NewTestServer wires a server around the given store with test
// credentials.
func NewTestServer(t *testing.T, store storage.Storage) *handlers.Server {
	t.Helper()
	cfg := TestConfig()
	service := licensing.NewService(store, cfg.APISecret)
	return handlers.NewHTTPServer(cfg, store, service)
}

// MakeCheckRequest sends a verification request through the full
// router.
func MakeCheckRequest(t *testing.T, server *handlers.Server, licenseKey, productName, accountNumber, secret string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(handlers.CheckLicenseRequest{
		LicenseKey:    licenseKey,
		ProductName:   productName,
		AccountNumber: accountNumber,
	})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/licenses/check", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Secret", secret)

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

// AdminRequest sends a management request through the full router with
// the given session token.
func AdminRequest(t *testing.T, server *handlers.Server, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

// AssertCheckInvalid checks an {status:"invalid"} verification
// response.
func AssertCheckInvalid(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()

	if w.Code != expectedStatus {
		t.Errorf("Expected status %d, got %d", expectedStatus, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "invalid" {
		t.Errorf("Expected status field 'invalid', got '%v'", response["status"])
	}
	if response["error"] != expectedError {
		t.Errorf("Expected error '%s', got '%v'", expectedError, response["error"])
	}
}

// AssertCheckValid checks a successful verification response.
func AssertCheckValid(t *testing.T, w *httptest.ResponseRecorder, expectedProduct string) {
	t.Helper()

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "valid" {
		t.Errorf("Expected status field 'valid', got '%v'", response["status"])
	}
	if response["product"] != expectedProduct {
		t.Errorf("Expected product '%s', got '%v'", expectedProduct, response["product"])
	}
	if response["active"] != true {
		t.Errorf("Expected active=true, got '%v'", response["active"])
	}
}
