package config

import (
	"errors"
	"os"

	"github.com/hashicorp/go-multierror"
)

type Config struct {
	Port string

	DatabaseURL string

	// APISecret is the pre-shared credential unattended clients present
	// on the verification endpoint.
	APISecret string

	// SessionToken stands in for the session collaborator on management
	// endpoints; a caller presenting it is treated as authenticated.
	SessionToken string

	SentryDSN string

	StripeWebhookSecret string
}

// New reads configuration from the environment once at startup.
// Missing required variables are collected so a single run reports all
// of them.
func New() (*Config, error) {
	var errs *multierror.Error

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		errs = multierror.Append(errs, errors.New("DATABASE_URL environment variable is required"))
	}

	apiSecret := os.Getenv("API_SECRET")
	if apiSecret == "" {
		errs = multierror.Append(errs, errors.New("API_SECRET environment variable is required"))
	}

	sessionToken := os.Getenv("SESSION_TOKEN")
	if sessionToken == "" {
		errs = multierror.Append(errs, errors.New("SESSION_TOKEN environment variable is required"))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	return &Config{
		Port:                port,
		DatabaseURL:         dbURL,
		APISecret:           apiSecret,
		SessionToken:        sessionToken,
		SentryDSN:           os.Getenv("SENTRY_DSN"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}, nil
}
