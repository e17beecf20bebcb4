package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"licensemanager.app/cloud/models"
)

func testProduct(id, name string) models.Product {
	return models.Product{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func testConsumer(id, accountNumber string) models.Consumer {
	return models.Consumer{
		ID:            id,
		Name:          "Test Consumer",
		Email:         id + "@example.com",
		AccountNumber: accountNumber,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func testLicense(id, key, productID, consumerID string) models.License {
	return models.License{
		ID:         id,
		Key:        key,
		ProductID:  productID,
		ConsumerID: consumerID,
		Type:       models.TypeTrial,
		Active:     true,
		Version:    1,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// runStorageSuite exercises the full Storage contract against any
// implementation.
func runStorageSuite(t *testing.T, store Storage) {
	ctx := context.Background()

	t.Run("ProductOperations", func(t *testing.T) {
		product, err := store.GetProduct(ctx, "missing")
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		if product != nil {
			t.Errorf("Expected nil product, got %v", product)
		}

		p := testProduct("product1", "AlgoTrader Pro")
		if err := store.SaveProduct(ctx, &p); err != nil {
			t.Fatalf("Failed to save product: %v", err)
		}

		product, err = store.GetProduct(ctx, "product1")
		if err != nil {
			t.Fatalf("Failed to get product: %v", err)
		}
		if product == nil {
			t.Fatalf("Expected product, got nil")
		}
		if product.Name != "AlgoTrader Pro" {
			t.Errorf("Expected name 'AlgoTrader Pro', got '%s'", product.Name)
		}
	})

	t.Run("ConsumerOperations", func(t *testing.T) {
		c := testConsumer("consumer1", "ACC-10001")
		if err := store.SaveConsumer(ctx, &c); err != nil {
			t.Fatalf("Failed to save consumer: %v", err)
		}

		consumer, err := store.GetConsumer(ctx, "consumer1")
		if err != nil {
			t.Fatalf("Failed to get consumer: %v", err)
		}
		if consumer == nil {
			t.Fatalf("Expected consumer, got nil")
		}

		consumer, err = store.FindConsumerByAccountNumber(ctx, "ACC-10001")
		if err != nil {
			t.Fatalf("Failed to find consumer by account number: %v", err)
		}
		if consumer == nil || consumer.ID != "consumer1" {
			t.Errorf("Expected consumer1 by account number, got %v", consumer)
		}

		consumer, err = store.FindConsumerByAccountNumber(ctx, "ACC-99999")
		if err != nil {
			t.Errorf("Expected no error for unknown account, got %v", err)
		}
		if consumer != nil {
			t.Errorf("Expected nil for unknown account, got %v", consumer)
		}

		consumer, err = store.FindConsumerByEmailAddress(ctx, "consumer1@example.com")
		if err != nil {
			t.Fatalf("Failed to find consumer by email: %v", err)
		}
		if consumer == nil || consumer.ID != "consumer1" {
			t.Errorf("Expected consumer1 by email, got %v", consumer)
		}
	})

	t.Run("LicenseCreateAndLookup", func(t *testing.T) {
		l := testLicense("license1", "KEY-1", "product1", "consumer1")
		if err := store.CreateLicense(ctx, &l); err != nil {
			t.Fatalf("Failed to create license: %v", err)
		}

		license, err := store.GetLicense(ctx, "license1")
		if err != nil {
			t.Fatalf("Failed to get license: %v", err)
		}
		if license == nil {
			t.Fatalf("Expected license, got nil")
		}
		if license.Key != "KEY-1" {
			t.Errorf("Expected key 'KEY-1', got '%s'", license.Key)
		}
		if license.Expires != nil {
			t.Errorf("Expected nil expiry, got %v", license.Expires)
		}

		license, err = store.FindLicenseByKeyAndConsumer(ctx, "KEY-1", "consumer1")
		if err != nil {
			t.Fatalf("Failed to find license: %v", err)
		}
		if license == nil || license.ID != "license1" {
			t.Errorf("Expected license1 by key+consumer, got %v", license)
		}

		// The same key under a different consumer must not resolve.
		license, err = store.FindLicenseByKeyAndConsumer(ctx, "KEY-1", "other-consumer")
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		if license != nil {
			t.Errorf("Expected nil for wrong consumer, got %v", license)
		}
	})

	t.Run("DuplicateKeyRejected", func(t *testing.T) {
		l := testLicense("license2", "KEY-1", "product1", "consumer1")
		err := store.CreateLicense(ctx, &l)
		if !errors.Is(err, ErrDuplicateKey) {
			t.Errorf("Expected ErrDuplicateKey, got %v", err)
		}
	})

	t.Run("LicenseWithExpiry", func(t *testing.T) {
		expires := time.Date(2027, 1, 2, 3, 4, 5, 0, time.UTC)
		l := testLicense("license3", "KEY-3", "product1", "consumer1")
		l.Expires = &expires
		if err := store.CreateLicense(ctx, &l); err != nil {
			t.Fatalf("Failed to create license: %v", err)
		}

		license, err := store.GetLicense(ctx, "license3")
		if err != nil {
			t.Fatalf("Failed to get license: %v", err)
		}
		if license.Expires == nil {
			t.Fatalf("Expected expiry, got nil")
		}
		if !license.Expires.Equal(expires) {
			t.Errorf("Expected expiry %v, got %v", expires, license.Expires)
		}
	})

	t.Run("UpdateBumpsVersion", func(t *testing.T) {
		license, err := store.GetLicense(ctx, "license1")
		if err != nil || license == nil {
			t.Fatalf("Failed to get license: %v", err)
		}

		license.Active = false
		if err := store.UpdateLicense(ctx, license); err != nil {
			t.Fatalf("Failed to update license: %v", err)
		}
		if license.Version != 2 {
			t.Errorf("Expected version 2 after update, got %d", license.Version)
		}

		updated, err := store.GetLicense(ctx, "license1")
		if err != nil {
			t.Fatalf("Failed to get license: %v", err)
		}
		if updated.Active {
			t.Errorf("Expected active=false after update")
		}
		if updated.Version != 2 {
			t.Errorf("Expected stored version 2, got %d", updated.Version)
		}
	})

	t.Run("UpdateVersionConflict", func(t *testing.T) {
		stale, err := store.GetLicense(ctx, "license1")
		if err != nil || stale == nil {
			t.Fatalf("Failed to get license: %v", err)
		}

		// A concurrent writer wins the race.
		current, _ := store.GetLicense(ctx, "license1")
		current.Type = models.TypeFull
		if err := store.UpdateLicense(ctx, current); err != nil {
			t.Fatalf("Failed to update license: %v", err)
		}

		stale.Active = true
		err = store.UpdateLicense(ctx, stale)
		if !errors.Is(err, ErrVersionConflict) {
			t.Errorf("Expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("UpdateMissingLicense", func(t *testing.T) {
		l := testLicense("ghost", "KEY-GHOST", "product1", "consumer1")
		err := store.UpdateLicense(ctx, &l)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListLicenses", func(t *testing.T) {
		licenses, err := store.ListLicenses(ctx)
		if err != nil {
			t.Fatalf("Failed to list licenses: %v", err)
		}
		if len(licenses) != 2 {
			t.Errorf("Expected 2 licenses, got %d", len(licenses))
		}
	})

	t.Run("DeleteLicense", func(t *testing.T) {
		if err := store.DeleteLicense(ctx, "license3"); err != nil {
			t.Fatalf("Failed to delete license: %v", err)
		}

		license, err := store.GetLicense(ctx, "license3")
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		if license != nil {
			t.Errorf("Expected nil after delete, got %v", license)
		}

		err = store.DeleteLicense(ctx, "license3")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for second delete, got %v", err)
		}
	})
}

func TestMemoryStorage(t *testing.T) {
	store := NewMemoryStorage()
	defer store.Close()

	runStorageSuite(t, store)
}

func TestSQLiteStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "licenses.db")

	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("Failed to open SQLite storage: %v", err)
	}
	defer store.Close()

	runStorageSuite(t, store)
}

func TestSQLiteStorage_MigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "licenses.db")

	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("Failed to open SQLite storage: %v", err)
	}
	store.Close()

	// Reopening runs the migrations against an up-to-date schema.
	store, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("Failed to reopen SQLite storage: %v", err)
	}
	store.Close()
}
