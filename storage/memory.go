package storage

import (
	"context"
	"sync"

	"licensemanager.app/cloud/models"
)

// MemoryStorage is the in-process implementation used by tests. It
// enforces the same key uniqueness and version checks as SQLite.
type MemoryStorage struct {
	mu        sync.Mutex
	Products  map[string]models.Product
	Consumers map[string]models.Consumer
	Licenses  map[string]models.License
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Products:  make(map[string]models.Product),
		Consumers: make(map[string]models.Consumer),
		Licenses:  make(map[string]models.License),
	}
}

func (m *MemoryStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, exists := m.Products[id]
	if !exists {
		return nil, nil
	}
	return &product, nil
}

func (m *MemoryStorage) SaveProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Products[product.ID] = *product
	return nil
}

func (m *MemoryStorage) GetConsumer(ctx context.Context, id string) (*models.Consumer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	consumer, exists := m.Consumers[id]
	if !exists {
		return nil, nil
	}
	return &consumer, nil
}

func (m *MemoryStorage) FindConsumerByAccountNumber(ctx context.Context, accountNumber string) (*models.Consumer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, consumer := range m.Consumers {
		if consumer.AccountNumber == accountNumber {
			consumerCopy := consumer
			return &consumerCopy, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) FindConsumerByEmailAddress(ctx context.Context, emailAddress string) (*models.Consumer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, consumer := range m.Consumers {
		if consumer.Email == emailAddress {
			consumerCopy := consumer
			return &consumerCopy, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) SaveConsumer(ctx context.Context, consumer *models.Consumer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Consumers[consumer.ID] = *consumer
	return nil
}

func (m *MemoryStorage) GetLicense(ctx context.Context, id string) (*models.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	license, exists := m.Licenses[id]
	if !exists {
		return nil, nil
	}
	return &license, nil
}

func (m *MemoryStorage) FindLicenseByKeyAndConsumer(ctx context.Context, key, consumerID string) (*models.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, license := range m.Licenses {
		if license.Key == key && license.ConsumerID == consumerID {
			licenseCopy := license
			return &licenseCopy, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) ListLicenses(ctx context.Context) ([]*models.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var licenses []*models.License
	for _, license := range m.Licenses {
		licenseCopy := license
		licenses = append(licenses, &licenseCopy)
	}
	return licenses, nil
}

func (m *MemoryStorage) CreateLicense(ctx context.Context, license *models.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Licenses {
		if existing.Key == license.Key {
			return ErrDuplicateKey
		}
	}

	m.Licenses[license.ID] = *license
	return nil
}

func (m *MemoryStorage) UpdateLicense(ctx context.Context, license *models.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.Licenses[license.ID]
	if !exists {
		return ErrNotFound
	}
	if existing.Version != license.Version {
		return ErrVersionConflict
	}

	license.Version++
	m.Licenses[license.ID] = *license
	return nil
}

func (m *MemoryStorage) DeleteLicense(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Licenses[id]; !exists {
		return ErrNotFound
	}
	delete(m.Licenses, id)
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
