package licensing

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"
)

type VerifyRequest struct {
	LicenseKey    string
	ProductName   string
	AccountNumber string
	Secret        string
}

type VerifyResult struct {
	Product string
	Expires *time.Time
	Active  bool
}

// Verify answers whether the presented key/product/account combination
// currently grants entitlement. The checks run in a fixed order and
// the first failure determines the reported reason:
//
//	secret, field presence, consumer, license, active, expiry, product.
//
// A key that exists but belongs to a different consumer is
// indistinguishable from a missing key. The query is read-only; an
// expired license is reported, never deactivated.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if subtle.ConstantTimeCompare([]byte(req.Secret), s.secret) != 1 {
		return nil, ErrUnauthorized
	}

	if req.LicenseKey == "" || req.ProductName == "" || req.AccountNumber == "" {
		return nil, &ValidationError{Message: "Missing required fields"}
	}

	consumer, err := s.store.FindConsumerByAccountNumber(ctx, req.AccountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up consumer: %w", err)
	}
	if consumer == nil {
		return nil, &NotFoundError{Entity: "Consumer"}
	}

	license, err := s.store.FindLicenseByKeyAndConsumer(ctx, req.LicenseKey, consumer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up license: %w", err)
	}
	if license == nil {
		return nil, &NotFoundError{Entity: "License"}
	}

	if !license.Active {
		return nil, &StateConflictError{Reason: ReasonDeactivated}
	}

	if license.Expired(s.now()) {
		return nil, &StateConflictError{Reason: ReasonExpired}
	}

	product, err := s.store.GetProduct(ctx, license.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	// A resolvable product with the wrong name outranks a dangling
	// product reference.
	if product != nil && product.Name != req.ProductName {
		return nil, &StateConflictError{Reason: ReasonInvalidProduct}
	}
	if product == nil {
		return nil, &NotFoundError{Entity: "Product"}
	}

	return &VerifyResult{
		Product: product.Name,
		Expires: license.Expires,
		Active:  license.Active,
	}, nil
}
