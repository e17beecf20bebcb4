package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"

	"licensemanager.app/cloud/migrations"
	"licensemanager.app/cloud/models"
)

type SQLiteStorage struct {
	db   *sql.DB
	path string
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{
		db:   db,
		path: path,
	}

	if err := storage.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) migrate() error {
	source, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func (s *SQLiteStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM products WHERE id = ?`

	var product models.Product
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (s *SQLiteStorage) SaveProduct(ctx context.Context, product *models.Product) error {
	query := `INSERT OR REPLACE INTO products (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) GetConsumer(ctx context.Context, id string) (*models.Consumer, error) {
	query := `SELECT id, name, email, phone, country, account_number, created_at, updated_at FROM consumers WHERE id = ?`

	return s.scanConsumer(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) FindConsumerByAccountNumber(ctx context.Context, accountNumber string) (*models.Consumer, error) {
	query := `SELECT id, name, email, phone, country, account_number, created_at, updated_at FROM consumers WHERE account_number = ?`

	return s.scanConsumer(s.db.QueryRowContext(ctx, query, accountNumber))
}

func (s *SQLiteStorage) FindConsumerByEmailAddress(ctx context.Context, emailAddress string) (*models.Consumer, error) {
	query := `SELECT id, name, email, phone, country, account_number, created_at, updated_at FROM consumers WHERE email = ?`

	return s.scanConsumer(s.db.QueryRowContext(ctx, query, emailAddress))
}

func (s *SQLiteStorage) scanConsumer(row *sql.Row) (*models.Consumer, error) {
	var consumer models.Consumer
	err := row.Scan(
		&consumer.ID,
		&consumer.Name,
		&consumer.Email,
		&consumer.Phone,
		&consumer.Country,
		&consumer.AccountNumber,
		&consumer.CreatedAt,
		&consumer.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &consumer, nil
}

func (s *SQLiteStorage) SaveConsumer(ctx context.Context, consumer *models.Consumer) error {
	query := `INSERT OR REPLACE INTO consumers (id, name, email, phone, country, account_number, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		consumer.ID,
		consumer.Name,
		consumer.Email,
		consumer.Phone,
		consumer.Country,
		consumer.AccountNumber,
		consumer.CreatedAt,
		consumer.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save consumer: %w", err)
	}

	return nil
}

const licenseColumns = `id, key, product_id, consumer_id, license_type, expires, active, version, created_at, updated_at`

func (s *SQLiteStorage) GetLicense(ctx context.Context, id string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = ?`

	return s.scanLicense(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) FindLicenseByKeyAndConsumer(ctx context.Context, key, consumerID string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE key = ? AND consumer_id = ?`

	return s.scanLicense(s.db.QueryRowContext(ctx, query, key, consumerID))
}

func (s *SQLiteStorage) scanLicense(row *sql.Row) (*models.License, error) {
	var license models.License
	var expires sql.NullTime
	err := row.Scan(
		&license.ID,
		&license.Key,
		&license.ProductID,
		&license.ConsumerID,
		&license.Type,
		&expires,
		&license.Active,
		&license.Version,
		&license.CreatedAt,
		&license.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if expires.Valid {
		license.Expires = &expires.Time
	}

	return &license, nil
}

func (s *SQLiteStorage) ListLicenses(ctx context.Context) ([]*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query licenses: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	var licenses []*models.License

	for rows.Next() {
		var license models.License
		var expires sql.NullTime
		err := rows.Scan(
			&license.ID,
			&license.Key,
			&license.ProductID,
			&license.ConsumerID,
			&license.Type,
			&expires,
			&license.Active,
			&license.Version,
			&license.CreatedAt,
			&license.UpdatedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("failed to scan license: %w", err)
		}

		if expires.Valid {
			license.Expires = &expires.Time
		}

		licenses = append(licenses, &license)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating licenses: %w", err)
	}

	return licenses, nil
}

func (s *SQLiteStorage) CreateLicense(ctx context.Context, license *models.License) error {
	query := `INSERT INTO licenses (` + licenseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var expires interface{}
	if license.Expires != nil {
		expires = *license.Expires
	}

	_, err := s.db.ExecContext(ctx, query,
		license.ID,
		license.Key,
		license.ProductID,
		license.ConsumerID,
		license.Type,
		expires,
		license.Active,
		license.Version,
		license.CreatedAt,
		license.UpdatedAt,
	)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to create license: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) UpdateLicense(ctx context.Context, license *models.License) error {
	query := `UPDATE licenses
		SET license_type = ?, expires = ?, active = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	var expires interface{}
	if license.Expires != nil {
		expires = *license.Expires
	}

	result, err := s.db.ExecContext(ctx, query,
		license.Type,
		expires,
		license.Active,
		license.UpdatedAt,
		license.ID,
		license.Version,
	)

	if err != nil {
		return fmt.Errorf("failed to update license: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if affected == 0 {
		existing, err := s.GetLicense(ctx, license.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	license.Version++
	return nil
}

func (s *SQLiteStorage) DeleteLicense(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM licenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete license: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
