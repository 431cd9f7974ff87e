package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row scoped to a user or id does not exist
var ErrNotFound = errors.New("not found")

// DB wraps the connection pool
type DB struct {
	Pool *pgxpool.Pool

	// keyring encrypts supplier API keys at rest
	keyring []byte
}

// Connect creates a new database connection pool. keySecret is used to
// derive the key that encrypts supplier API keys.
func Connect(databaseURL, keySecret string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	// Configure pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Println("Database connected successfully")
	return &DB{Pool: pool, keyring: DeriveEncryptionKey(keySecret)}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies pending migrations in version order
func RunMigrations(ctx context.Context, db *DB) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	versions := make([]int, 0, len(migrations))
	for v := range migrations {
		versions = append(versions, v)
	}
	sort.Ints(versions)

	for _, version := range versions {
		var exists bool
		err := db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", version, err)
		}
		if exists {
			continue
		}

		log.Printf("Applying migration %d...", version)
		if err := applyMigration(ctx, db, version); err != nil {
			return err
		}
		log.Printf("Migration %d applied successfully", version)
	}

	return nil
}

func applyMigration(ctx context.Context, db *DB, version int) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", version, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, migrations[version]); err != nil {
		return fmt.Errorf("failed to apply migration %d: %w", version, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}
	return tx.Commit(ctx)
}

// migrations maps version to SQL
var migrations = map[int]string{
	1: migration001,
	2: migration002,
	3: migration003,
}

const migration001 = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE EXTENSION IF NOT EXISTS "pg_trgm";

CREATE TABLE IF NOT EXISTS suppliers (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    name VARCHAR(255) NOT NULL,
    slug VARCHAR(100) UNIQUE NOT NULL,
    catalog_type VARCHAR(20) NOT NULL CHECK (catalog_type IN ('database', 'json_api', 'html')),
    endpoint TEXT NOT NULL DEFAULT '',
    api_key_encrypted TEXT,
    rate_limit_rps DOUBLE PRECISION NOT NULL DEFAULT 0,
    selectors JSONB,
    delivery JSONB NOT NULL DEFAULT '{}',
    enabled BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS supplier_products (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    supplier_id UUID NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
    product_code VARCHAR(100) NOT NULL,
    name VARCHAR(500) NOT NULL,
    brand VARCHAR(255),
    sku VARCHAR(100),
    price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
    regular_price NUMERIC(12, 2),
    stock_status VARCHAR(20) NOT NULL DEFAULT 'unknown',
    url TEXT NOT NULL DEFAULT '',
    image_url TEXT,
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE (supplier_id, product_code)
);

CREATE INDEX IF NOT EXISTS idx_supplier_products_supplier ON supplier_products(supplier_id);
CREATE INDEX IF NOT EXISTS idx_supplier_products_name_trgm ON supplier_products USING GIN (name gin_trgm_ops);
`

const migration002 = `
CREATE TABLE IF NOT EXISTS photo_uploads (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    user_id VARCHAR(255),
    s3_bucket VARCHAR(255) NOT NULL,
    s3_key VARCHAR(500) NOT NULL,
    original_filename VARCHAR(255),
    content_type VARCHAR(100) NOT NULL,
    file_size_bytes BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    extracted_text TEXT,
    error_message TEXT,
    uploaded_at TIMESTAMPTZ DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_photo_uploads_expires ON photo_uploads(expires_at);
`

const migration003 = `
CREATE TABLE IF NOT EXISTS comparisons (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    user_id VARCHAR(255) NOT NULL,
    title VARCHAR(255) NOT NULL,
    source VARCHAR(20) NOT NULL,
    input_text TEXT NOT NULL,
    photo_id UUID REFERENCES photo_uploads(id) ON DELETE SET NULL,
    result JSONB NOT NULL,
    total NUMERIC(12, 2) NOT NULL,
    savings NUMERIC(12, 2) NOT NULL,
    item_count INT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_comparisons_user ON comparisons(user_id, created_at DESC);
`
