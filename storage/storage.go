package storage

import (
	"context"
	"errors"

	"licensemanager.app/cloud/models"
)

var (
	// ErrNotFound is returned by mutations targeting a record that does
	// not exist. Lookups return (nil, nil) for absent records instead.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned by CreateLicense when the license key
	// collides with an existing one. The generator never checks the key
	// space itself; the unique index is the authority.
	ErrDuplicateKey = errors.New("license key already exists")

	// ErrVersionConflict is returned by UpdateLicense when the record
	// was modified since it was read.
	ErrVersionConflict = errors.New("license version conflict")
)

type Storage interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SaveProduct(ctx context.Context, product *models.Product) error

	GetConsumer(ctx context.Context, id string) (*models.Consumer, error)
	FindConsumerByAccountNumber(ctx context.Context, accountNumber string) (*models.Consumer, error)
	FindConsumerByEmailAddress(ctx context.Context, emailAddress string) (*models.Consumer, error)
	SaveConsumer(ctx context.Context, consumer *models.Consumer) error

	GetLicense(ctx context.Context, id string) (*models.License, error)
	FindLicenseByKeyAndConsumer(ctx context.Context, key, consumerID string) (*models.License, error)
	ListLicenses(ctx context.Context) ([]*models.License, error)
	CreateLicense(ctx context.Context, license *models.License) error
	UpdateLicense(ctx context.Context, license *models.License) error
	DeleteLicense(ctx context.Context, id string) error

	Close() error
}
