package licensing

import (
	"context"
	"errors"
	"testing"
	"time"

	"licensemanager.app/cloud/models"
	"licensemanager.app/cloud/storage"
)

const otherConsumerID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"

func verifyFixture(t *testing.T) (*Service, *storage.MemoryStorage, *models.License) {
	t.Helper()
	service, store := newTestService(t)
	ctx := context.Background()

	license, err := service.Issue(ctx, productID, consumerID, models.TypeTrial, nil)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return service, store, license
}

func request(license *models.License, secret string) VerifyRequest {
	return VerifyRequest{
		LicenseKey:    license.Key,
		ProductName:   "AlgoTrader Pro",
		AccountNumber: "ACC-10001",
		Secret:        secret,
	}
}

func TestVerify_Success(t *testing.T) {
	service, _, license := verifyFixture(t)

	result, err := service.Verify(context.Background(), request(license, testSecret))
	if err != nil {
		t.Fatalf("Expected valid, got %v", err)
	}
	if result.Product != "AlgoTrader Pro" {
		t.Errorf("Expected product 'AlgoTrader Pro', got '%s'", result.Product)
	}
	if result.Expires != nil {
		t.Errorf("Expected nil expiry, got %v", result.Expires)
	}
	if !result.Active {
		t.Errorf("Expected active=true")
	}
}

func TestVerify_SecretCheckedFirst(t *testing.T) {
	service, _, _ := verifyFixture(t)

	// A wrong secret wins over every other defect, including a request
	// that is otherwise completely empty.
	_, err := service.Verify(context.Background(), VerifyRequest{Secret: "wrong"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}

	// And over a request that would otherwise be fully valid.
	_, _, license := verifyFixture(t)
	req := request(license, "wrong")
	_, err = service.Verify(context.Background(), req)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_MissingFields(t *testing.T) {
	service, _, license := verifyFixture(t)

	tests := []struct {
		name string
		req  VerifyRequest
	}{
		{"missing key", VerifyRequest{ProductName: "AlgoTrader Pro", AccountNumber: "ACC-10001", Secret: testSecret}},
		{"missing product", VerifyRequest{LicenseKey: license.Key, AccountNumber: "ACC-10001", Secret: testSecret}},
		{"missing account", VerifyRequest{LicenseKey: license.Key, ProductName: "AlgoTrader Pro", Secret: testSecret}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Verify(context.Background(), tt.req)
			assertValidation(t, err, "Missing required fields")
		})
	}
}

func TestVerify_ConsumerNotFound(t *testing.T) {
	service, _, license := verifyFixture(t)

	req := request(license, testSecret)
	req.AccountNumber = "ACC-99999"
	_, err := service.Verify(context.Background(), req)
	assertNotFound(t, err, "Consumer")
}

func TestVerify_LicenseNotFound(t *testing.T) {
	service, _, license := verifyFixture(t)

	req := request(license, testSecret)
	req.LicenseKey = "no-such-key"
	_, err := service.Verify(context.Background(), req)
	assertNotFound(t, err, "License")
}

func TestVerify_KeyOfDifferentConsumerLooksMissing(t *testing.T) {
	service, store, license := verifyFixture(t)
	ctx := context.Background()

	// A second consumer presents the first consumer's real key.
	now := time.Now()
	other := models.Consumer{
		ID:            otherConsumerID,
		Name:          "Casey Trader",
		Email:         "casey@example.com",
		AccountNumber: "ACC-20002",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.SaveConsumer(ctx, &other); err != nil {
		t.Fatalf("Failed to save consumer: %v", err)
	}

	req := request(license, testSecret)
	req.AccountNumber = "ACC-20002"
	_, err := service.Verify(ctx, req)
	assertNotFound(t, err, "License")
}

func TestVerify_DeactivatedBeforeExpiryAndProduct(t *testing.T) {
	service, store, license := verifyFixture(t)
	ctx := context.Background()

	// Deactivated, expired, and pointed at the wrong product all at
	// once: deactivation must be what gets reported.
	yesterday := time.Now().Add(-24 * time.Hour)
	license.Active = false
	license.Expires = &yesterday
	if err := store.UpdateLicense(ctx, license); err != nil {
		t.Fatalf("Failed to update license: %v", err)
	}

	req := request(license, testSecret)
	req.ProductName = "Wrong Product"
	_, err := service.Verify(ctx, req)

	var conflictErr *StateConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("Expected StateConflictError, got %v", err)
	}
	if conflictErr.Reason != ReasonDeactivated {
		t.Errorf("Expected '%s', got '%s'", ReasonDeactivated, conflictErr.Reason)
	}
}

func TestVerify_ExpiredBeforeProduct(t *testing.T) {
	service, store, license := verifyFixture(t)
	ctx := context.Background()

	yesterday := time.Now().Add(-24 * time.Hour)
	license.Expires = &yesterday
	if err := store.UpdateLicense(ctx, license); err != nil {
		t.Fatalf("Failed to update license: %v", err)
	}

	req := request(license, testSecret)
	req.ProductName = "Wrong Product"
	_, err := service.Verify(ctx, req)

	var conflictErr *StateConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("Expected StateConflictError, got %v", err)
	}
	if conflictErr.Reason != ReasonExpired {
		t.Errorf("Expected '%s', got '%s'", ReasonExpired, conflictErr.Reason)
	}
}

func TestVerify_FutureExpiryStillValid(t *testing.T) {
	service, store, license := verifyFixture(t)
	ctx := context.Background()

	tomorrow := time.Now().Add(24 * time.Hour)
	license.Expires = &tomorrow
	if err := store.UpdateLicense(ctx, license); err != nil {
		t.Fatalf("Failed to update license: %v", err)
	}

	result, err := service.Verify(ctx, request(license, testSecret))
	if err != nil {
		t.Fatalf("Expected valid, got %v", err)
	}
	if result.Expires == nil || !result.Expires.Equal(tomorrow) {
		t.Errorf("Expected expiry %v, got %v", tomorrow, result.Expires)
	}
}

func TestVerify_ProductNameMismatch(t *testing.T) {
	service, _, license := verifyFixture(t)

	req := request(license, testSecret)
	req.ProductName = "Some Other Product"
	_, err := service.Verify(context.Background(), req)

	var conflictErr *StateConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("Expected StateConflictError, got %v", err)
	}
	if conflictErr.Reason != ReasonInvalidProduct {
		t.Errorf("Expected '%s', got '%s'", ReasonInvalidProduct, conflictErr.Reason)
	}
}

func TestVerify_DanglingProductReference(t *testing.T) {
	service, store, license := verifyFixture(t)

	// The product record disappeared after issuance.
	delete(store.Products, productID)

	_, err := service.Verify(context.Background(), request(license, testSecret))
	assertNotFound(t, err, "Product")
}

func TestVerify_IsReadOnly(t *testing.T) {
	service, store, license := verifyFixture(t)
	ctx := context.Background()

	yesterday := time.Now().Add(-24 * time.Hour)
	license.Expires = &yesterday
	if err := store.UpdateLicense(ctx, license); err != nil {
		t.Fatalf("Failed to update license: %v", err)
	}
	versionBefore := license.Version

	// An expired verification reports the state but never writes it.
	if _, err := service.Verify(ctx, request(license, testSecret)); err == nil {
		t.Fatalf("Expected expired error")
	}

	stored, err := store.GetLicense(ctx, license.ID)
	if err != nil || stored == nil {
		t.Fatalf("Failed to get license: %v", err)
	}
	if !stored.Active {
		t.Errorf("Expected license still active; verification must not deactivate")
	}
	if stored.Version != versionBefore {
		t.Errorf("Expected version unchanged, got %d -> %d", versionBefore, stored.Version)
	}
}
