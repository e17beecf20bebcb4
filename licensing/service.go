package licensing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"licensemanager.app/cloud/models"
	"licensemanager.app/cloud/storage"
)

// Retry budget for compare-and-swap updates that lose a race.
const casRetries = 3

// Service owns the license lifecycle and the verification decision
// procedure. It is stateless apart from the store handle and the
// configured shared secret.
type Service struct {
	store  storage.Storage
	keygen KeyGenerator
	secret []byte
	now    func() time.Time
}

func NewService(store storage.Storage, secret string) *Service {
	return &Service{
		store:  store,
		keygen: RandomKey,
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue creates a new license after validating inputs and references.
// The returned record has active=true and a freshly generated key.
func (s *Service) Issue(ctx context.Context, productID, consumerID, licenseType string, expires *time.Time) (*models.License, error) {
	if productID == "" || consumerID == "" || licenseType == "" {
		return nil, &ValidationError{Message: "Missing required fields"}
	}
	if !models.ValidType(licenseType) {
		return nil, &ValidationError{Message: "Invalid licenseType"}
	}
	if _, err := uuid.Parse(productID); err != nil {
		return nil, &ValidationError{Message: "Invalid productId"}
	}
	if _, err := uuid.Parse(consumerID); err != nil {
		return nil, &ValidationError{Message: "Invalid consumerId"}
	}

	product, consumer, err := s.validateReferences(ctx, productID, consumerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	license := &models.License{
		ID:         uuid.Must(uuid.NewRandom()).String(),
		Key:        s.keygen(),
		ProductID:  product.ID,
		ConsumerID: consumer.ID,
		Type:       licenseType,
		Expires:    expires,
		Active:     true,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.CreateLicense(ctx, license); err != nil {
		return nil, fmt.Errorf("failed to create license: %w", err)
	}

	return license, nil
}

// validateReferences confirms both foreign keys resolve before a
// license may be issued. No side effects.
func (s *Service) validateReferences(ctx context.Context, productID, consumerID string) (*models.Product, *models.Consumer, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if product == nil {
		return nil, nil, &NotFoundError{Entity: "Product"}
	}

	consumer, err := s.store.GetConsumer(ctx, consumerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up consumer: %w", err)
	}
	if consumer == nil {
		return nil, nil, &NotFoundError{Entity: "Consumer"}
	}

	return product, consumer, nil
}

// ToggleActive sets the active flag unconditionally. Setting the
// current value is a no-op success.
func (s *Service) ToggleActive(ctx context.Context, licenseID string, active bool) (*models.License, error) {
	if _, err := uuid.Parse(licenseID); err != nil {
		return nil, &ValidationError{Message: "Invalid licenseId"}
	}

	return s.updateLicense(ctx, licenseID, func(license *models.License) error {
		license.Active = active
		return nil
	})
}

// Upgrade performs the one-way trial-to-full transition. Any target
// type other than "full" is rejected before the state check.
func (s *Service) Upgrade(ctx context.Context, licenseID, targetType string) (*models.License, error) {
	if _, err := uuid.Parse(licenseID); err != nil {
		return nil, &ValidationError{Message: "Invalid licenseId"}
	}
	if targetType != models.TypeFull {
		return nil, &ValidationError{Message: "Invalid licenseType. Only upgrade to full is allowed."}
	}

	return s.updateLicense(ctx, licenseID, func(license *models.License) error {
		if !license.CanUpgrade() {
			return &StateConflictError{Reason: ReasonAlreadyFull}
		}
		license.Type = models.TypeFull
		return nil
	})
}

// Delete permanently removes the license. No tombstone, no cascade.
func (s *Service) Delete(ctx context.Context, licenseID string) error {
	if _, err := uuid.Parse(licenseID); err != nil {
		return &ValidationError{Message: "Invalid licenseId"}
	}

	err := s.store.DeleteLicense(ctx, licenseID)
	if errors.Is(err, storage.ErrNotFound) {
		return &NotFoundError{Entity: "License"}
	}
	if err != nil {
		return fmt.Errorf("failed to delete license: %w", err)
	}

	return nil
}

// updateLicense runs a read-modify-write with compare-and-swap
// semantics, re-reading and retrying when a concurrent writer won.
func (s *Service) updateLicense(ctx context.Context, licenseID string, mutate func(*models.License) error) (*models.License, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		license, err := s.store.GetLicense(ctx, licenseID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up license: %w", err)
		}
		if license == nil {
			return nil, &NotFoundError{Entity: "License"}
		}

		if err := mutate(license); err != nil {
			return nil, err
		}
		license.UpdatedAt = s.now()

		err = s.store.UpdateLicense(ctx, license)
		if err == nil {
			return license, nil
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{Entity: "License"}
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to update license: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to update license %s: too many concurrent modifications", licenseID)
}

// ProductSummary and ConsumerSummary are the populated reference
// shapes the management listing returns alongside each license.
type ProductSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ConsumerSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	AccountNumber string `json:"accountNumber"`
}

type LicenseRecord struct {
	models.License
	Product  *ProductSummary  `json:"product"`
	Consumer *ConsumerSummary `json:"consumer"`
}

// List returns all licenses with their references resolved through an
// explicit two-phase fetch. A dangling reference yields a nil summary
// rather than an error; verification is where dangling products are
// reported.
func (s *Service) List(ctx context.Context) ([]*LicenseRecord, error) {
	licenses, err := s.store.ListLicenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}

	records := make([]*LicenseRecord, 0, len(licenses))
	for _, license := range licenses {
		record := &LicenseRecord{License: *license}

		product, err := s.store.GetProduct(ctx, license.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up product: %w", err)
		}
		if product != nil {
			record.Product = &ProductSummary{ID: product.ID, Name: product.Name}
		}

		consumer, err := s.store.GetConsumer(ctx, license.ConsumerID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up consumer: %w", err)
		}
		if consumer != nil {
			record.Consumer = &ConsumerSummary{
				ID:            consumer.ID,
				Name:          consumer.Name,
				Email:         consumer.Email,
				AccountNumber: consumer.AccountNumber,
			}
		}

		records = append(records, record)
	}

	return records, nil
}
