package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/foxxcyber/trade-basket/internal/models"
)

// SupplierLister loads the suppliers whose catalogs should be searched
type SupplierLister interface {
	ListEnabledSuppliers(ctx context.Context) ([]models.Supplier, error)
}

// Build constructs the adapter for a supplier's catalog type
func Build(supplier models.Supplier, products ProductSearcher, doer HTTPDoer) (Catalog, error) {
	switch supplier.CatalogType {
	case models.CatalogTypeDatabase:
		if products == nil {
			return nil, fmt.Errorf("%s: no product store configured", supplier.Slug)
		}
		return NewDatabase(supplier, products), nil
	case models.CatalogTypeJSONAPI:
		c, err := NewJSONAPI(supplier, doer)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", supplier.Slug, err)
		}
		return c, nil
	case models.CatalogTypeHTML:
		c, err := NewHTML(supplier, doer)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", supplier.Slug, err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%s: %w %q", supplier.Slug, ErrUnsupportedCatalog, supplier.CatalogType)
}

// Registry builds catalogs for the enabled suppliers and keeps them until
// Reset is called after a supplier changes.
type Registry struct {
	suppliers SupplierLister
	products  ProductSearcher
	doer      HTTPDoer
	logger    *slog.Logger

	mu    sync.Mutex
	built []Catalog
}

// NewRegistry creates a registry. doer may be nil for the default client.
func NewRegistry(suppliers SupplierLister, products ProductSearcher, doer HTTPDoer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{suppliers: suppliers, products: products, doer: doer, logger: logger}
}

// Catalogs returns one adapter per enabled supplier. A supplier whose
// adapter cannot be built is logged and skipped.
func (r *Registry) Catalogs(ctx context.Context) ([]Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.built != nil {
		return r.built, nil
	}

	suppliers, err := r.suppliers.ListEnabledSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load suppliers: %w", err)
	}

	built := make([]Catalog, 0, len(suppliers))
	for _, s := range suppliers {
		c, err := Build(s, r.products, r.doer)
		if err != nil {
			r.logger.Warn("skipping supplier catalog", "supplier", s.Slug, "error", err)
			continue
		}
		built = append(built, c)
	}
	r.built = built
	return built, nil
}

// Reset drops the built adapters so the next comparison reloads suppliers
func (r *Registry) Reset() {
	r.mu.Lock()
	r.built = nil
	r.mu.Unlock()
}
