package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"licensemanager.app/cloud/internal/email"
	"licensemanager.app/cloud/internal/logger"
	"licensemanager.app/cloud/models"
)

// Stripe handles billing callbacks. A completed checkout issues a
// license for an existing consumer; registration stays with the
// out-of-scope account collaborator, so checkouts from unknown email
// addresses are acknowledged and skipped.
func (s *Server) Stripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	const MaxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read webhook payload", map[string]interface{}{
			"error": err.Error(),
		})
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event := stripe.Event{}
	if err := json.Unmarshal(payload, &event); err != nil {
		logger.Error("Failed to parse webhook JSON", map[string]interface{}{
			"error": err.Error(),
		})
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Skip signature verification in test mode
	if os.Getenv("TEST_MODE") == "true" {
		logger.Debug("Skipping webhook signature verification (test mode)")
	} else {
		if s.Config.StripeWebhookSecret == "" {
			logger.Error("STRIPE_WEBHOOK_SECRET environment variable not set")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		signatureHeader := r.Header.Get("Stripe-Signature")
		event, err = webhook.ConstructEvent(payload, signatureHeader, s.Config.StripeWebhookSecret)
		if err != nil {
			logger.Error("Webhook signature verification failed", map[string]interface{}{
				"error": err.Error(),
			})
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	switch event.Type {
	case "checkout.session.completed":
		var checkoutSession stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
			logger.Error("Failed to unmarshal checkout session", map[string]interface{}{
				"error":    err.Error(),
				"event_id": event.ID,
			})
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if err := s.handleCheckoutComplete(ctx, &checkoutSession); err != nil {
			logger.Error("Failed to handle checkout completion", map[string]interface{}{
				"error":      err.Error(),
				"session_id": checkoutSession.ID,
			})
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		logger.Info("Unhandled webhook event type", map[string]interface{}{
			"event_type": event.Type,
			"event_id":   event.ID,
		})
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"received": "true"}); err != nil {
		logger.Error("Failed to encode webhook response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) handleCheckoutComplete(ctx context.Context, session *stripe.CheckoutSession) error {
	var customerEmail string
	if session.CustomerDetails != nil {
		customerEmail = session.CustomerDetails.Email
	} else {
		customerEmail = session.CustomerEmail
	}

	consumer, err := s.Storage.FindConsumerByEmailAddress(ctx, customerEmail)
	if err != nil {
		return fmt.Errorf("failed to look up consumer: %w", err)
	}
	if consumer == nil {
		logger.Warn("Checkout completed for unknown consumer, skipping issuance", map[string]interface{}{
			"customer_email": customerEmail,
			"session_id":     session.ID,
		})
		return nil
	}

	licenseType := session.Metadata["license_type"]
	if licenseType == "" {
		licenseType = models.TypeFull
	}

	license, err := s.Service.Issue(ctx, session.Metadata["product_id"], consumer.ID, licenseType, nil)
	if err != nil {
		return fmt.Errorf("failed to issue license: %w", err)
	}

	logger.Info("License issued from checkout", map[string]interface{}{
		"license_id":  license.ID,
		"consumer_id": consumer.ID,
		"session_id":  session.ID,
	})

	body := fmt.Sprintf(`Hello %s,

Thank you for your purchase. Your license is ready.

LICENSE DETAILS
License Key: %s
License Type: %s
Account Number: %s

Configure your client with this license key and your account number to
start using the product.

Best regards,
The Licensing Team`,
		consumer.Name,
		license.Key,
		license.Type,
		consumer.AccountNumber)

	if err := email.Send(consumer.Email, "Your license key", body); err != nil {
		logger.Error("Failed to send license email", map[string]interface{}{
			"error":       err.Error(),
			"consumer_id": consumer.ID,
			"license_id":  license.ID,
		})
		// License was issued; delivery failure is not fatal.
	}

	return nil
}
