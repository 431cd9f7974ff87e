package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/foxxcyber/trade-basket/internal/models"
)

// ProductSearcher finds products in a database-backed supplier catalog
type ProductSearcher interface {
	SearchSupplierProducts(ctx context.Context, supplierID uuid.UUID, query string, limit int) ([]models.SupplierProduct, error)
}

// defaultDatabaseLimit caps candidates per query before relevance ranking
const defaultDatabaseLimit = 20

// Database searches a catalog uploaded into Postgres
type Database struct {
	supplier models.Supplier
	products ProductSearcher
	limit    int
}

// NewDatabase creates an adapter for a database supplier
func NewDatabase(supplier models.Supplier, products ProductSearcher) *Database {
	return &Database{supplier: supplier, products: products, limit: defaultDatabaseLimit}
}

func (a *Database) Supplier() models.Supplier { return a.supplier }

func (a *Database) Search(ctx context.Context, query string) ([]models.CatalogProduct, error) {
	rows, err := a.products.SearchSupplierProducts(ctx, a.supplier.ID, query, a.limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", a.supplier.Slug, err)
	}

	products := make([]models.CatalogProduct, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.CatalogProduct())
	}
	return products, nil
}
