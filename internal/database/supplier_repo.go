package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/foxxcyber/trade-basket/internal/models"
)

var (
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrSupplierExists   = errors.New("a supplier with this slug already exists")
)

const supplierColumns = `
	s.id, s.name, s.slug, s.catalog_type, s.endpoint, s.api_key_encrypted,
	s.rate_limit_rps, s.selectors, s.delivery, s.enabled, s.created_at, s.updated_at`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// scanSupplier reads supplierColumns and decrypts the API key
func (db *DB) scanSupplier(row pgx.Row, extra ...any) (*models.Supplier, error) {
	s := &models.Supplier{}
	var apiKey *string
	dest := []any{
		&s.ID, &s.Name, &s.Slug, &s.CatalogType, &s.Endpoint, &apiKey,
		&s.RateLimitRPS, &s.Selectors, &s.Delivery, &s.Enabled, &s.CreatedAt, &s.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if apiKey != nil && *apiKey != "" {
		plain, err := decrypt(*apiKey, db.keyring)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt API key for %s: %w", s.Slug, err)
		}
		s.APIKey = plain
		s.HasAPIKey = true
	}
	return s, nil
}

func (db *DB) sealAPIKey(key string) (*string, error) {
	if key == "" {
		return nil, nil
	}
	sealed, err := encrypt(key, db.keyring)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt API key: %w", err)
	}
	return &sealed, nil
}

// ListSuppliers returns every supplier with its stored product count
func (db *DB) ListSuppliers(ctx context.Context) ([]*models.SupplierWithStats, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+supplierColumns+`,
			COALESCE((SELECT COUNT(*) FROM supplier_products WHERE supplier_id = s.id), 0) AS product_count
		FROM suppliers s
		ORDER BY s.name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []*models.SupplierWithStats
	for rows.Next() {
		var count int
		s, err := db.scanSupplier(rows, &count)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, &models.SupplierWithStats{Supplier: *s, ProductCount: count})
	}
	return suppliers, rows.Err()
}

// ListEnabledSuppliers returns the suppliers searched during a comparison
func (db *DB) ListEnabledSuppliers(ctx context.Context) ([]models.Supplier, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers s
		WHERE s.enabled = TRUE
		ORDER BY s.name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []models.Supplier
	for rows.Next() {
		s, err := db.scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, *s)
	}
	return suppliers, rows.Err()
}

// GetSupplierByID retrieves a supplier
func (db *DB) GetSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	s, err := db.scanSupplier(db.Pool.QueryRow(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers s
		WHERE s.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetSupplierBySlug retrieves a supplier by its slug
func (db *DB) GetSupplierBySlug(ctx context.Context, slug string) (*models.Supplier, error) {
	s, err := db.scanSupplier(db.Pool.QueryRow(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers s
		WHERE s.slug = $1
	`, strings.ToLower(strings.TrimSpace(slug))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, err
	}
	return s, nil
}

// CreateSupplier registers a new supplier
func (db *DB) CreateSupplier(ctx context.Context, req *models.CreateSupplierRequest) (*models.Supplier, error) {
	apiKey, err := db.sealAPIKey(req.APIKey)
	if err != nil {
		return nil, err
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	var id uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, slug, catalog_type, endpoint, api_key_encrypted, rate_limit_rps, selectors, delivery, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Slug)), req.CatalogType,
		strings.TrimSpace(req.Endpoint), apiKey, req.RateLimitRPS, req.Selectors, req.Delivery, enabled,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSupplierExists
		}
		return nil, err
	}

	return db.GetSupplierByID(ctx, id)
}

// UpdateSupplier applies the non-nil fields of req
func (db *DB) UpdateSupplier(ctx context.Context, id uuid.UUID, req *models.UpdateSupplierRequest) (*models.Supplier, error) {
	var setClauses []string
	var args []interface{}
	argIndex := 1

	set := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if req.Name != nil {
		set("name", strings.TrimSpace(*req.Name))
	}
	if req.CatalogType != nil {
		set("catalog_type", *req.CatalogType)
	}
	if req.Endpoint != nil {
		set("endpoint", strings.TrimSpace(*req.Endpoint))
	}
	if req.APIKey != nil {
		apiKey, err := db.sealAPIKey(*req.APIKey)
		if err != nil {
			return nil, err
		}
		set("api_key_encrypted", apiKey)
	}
	if req.RateLimitRPS != nil {
		set("rate_limit_rps", *req.RateLimitRPS)
	}
	if req.Selectors != nil {
		set("selectors", req.Selectors)
	}
	if req.Delivery != nil {
		set("delivery", *req.Delivery)
	}
	if req.Enabled != nil {
		set("enabled", *req.Enabled)
	}

	if len(setClauses) == 0 {
		return db.GetSupplierByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	query := fmt.Sprintf("UPDATE suppliers SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argIndex)
	args = append(args, id)

	result, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		return nil, ErrSupplierNotFound
	}

	return db.GetSupplierByID(ctx, id)
}

// DeleteSupplier removes a supplier and its stored catalog
func (db *DB) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	result, err := db.Pool.Exec(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}
