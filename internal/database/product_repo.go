package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/trade-basket/internal/models"
)

// minSimilarity is the pg_trgm floor for a database catalog candidate.
// Final ranking happens in the matcher.
const minSimilarity = 0.1

// SearchSupplierProducts performs a fuzzy search within one supplier's
// stored catalog, best trigram similarity first
func (db *DB) SearchSupplierProducts(ctx context.Context, supplierID uuid.UUID, query string, limit int) ([]models.SupplierProduct, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, supplier_id, product_code, name, brand, sku, price, regular_price,
			stock_status, url, image_url, similarity(name, $2) AS sim, updated_at
		FROM supplier_products
		WHERE supplier_id = $1
			AND (similarity(name, $2) > $3 OR name ILIKE $4)
		ORDER BY sim DESC, price ASC
		LIMIT $5
	`, supplierID, query, minSimilarity, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.SupplierProduct
	for rows.Next() {
		var p models.SupplierProduct
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.ProductCode, &p.Name, &p.Brand, &p.SKU,
			&p.Price, &p.RegularPrice, &p.StockStatus, &p.URL, &p.ImageURL, &p.Similarity, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpsertSupplierProducts inserts or replaces catalog rows keyed by
// (supplier, product_code) in a single transaction
func (db *DB) UpsertSupplierProducts(ctx context.Context, supplierID uuid.UUID, products []models.UpsertProductRequest) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range products {
		stock := p.StockStatus
		if stock == "" {
			stock = models.StockUnknown
		}
		batch.Queue(`
			INSERT INTO supplier_products (supplier_id, product_code, name, brand, sku, price, regular_price, stock_status, url, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (supplier_id, product_code) DO UPDATE SET
				name = EXCLUDED.name,
				brand = EXCLUDED.brand,
				sku = EXCLUDED.sku,
				price = EXCLUDED.price,
				regular_price = EXCLUDED.regular_price,
				stock_status = EXCLUDED.stock_status,
				url = EXCLUDED.url,
				image_url = EXCLUDED.image_url,
				updated_at = NOW()
		`, supplierID, p.ProductCode, p.Name, p.Brand, p.SKU, p.Price, p.RegularPrice, stock, p.URL, p.ImageURL)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range products {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("product %s: %w", products[i].ProductCode, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(products), nil
}

// DeleteSupplierProducts clears a supplier's stored catalog
func (db *DB) DeleteSupplierProducts(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	result, err := db.Pool.Exec(ctx, "DELETE FROM supplier_products WHERE supplier_id = $1", supplierID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
