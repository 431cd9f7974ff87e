package services

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foxxcyber/trade-basket/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeCatalog returns the same products for every query
type fakeCatalog struct {
	supplier models.Supplier
	products []models.CatalogProduct
	err      error
	delay    time.Duration
	panics   bool

	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFakeCatalog(name string, products ...models.CatalogProduct) *fakeCatalog {
	return &fakeCatalog{
		supplier: models.Supplier{ID: uuid.New(), Name: name, Slug: slugOf(name), CatalogType: models.CatalogTypeDatabase},
		products: products,
	}
}

func slugOf(name string) string {
	b := []byte(name)
	for i, c := range b {
		switch {
		case c >= 'A' && c <= 'Z':
			b[i] = c + 'a' - 'A'
		case c == ' ':
			b[i] = '-'
		}
	}
	return string(b)
}

func (f *fakeCatalog) Supplier() models.Supplier { return f.supplier }

func (f *fakeCatalog) Search(ctx context.Context, _ string) ([]models.CatalogProduct, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.panics {
		panic("adapter bug")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.products, f.err
}

func product(id, name, price string, stock models.StockStatus) models.CatalogProduct {
	return models.CatalogProduct{
		ProductID:   id,
		Name:        name,
		Price:       dec(price),
		StockStatus: stock,
		URL:         "https://example.com/p/" + id,
	}
}

func match(supplierID uuid.UUID, supplier, price string, stock models.StockStatus) models.SupplierMatch {
	return models.SupplierMatch{
		ProductID:    supplier + "-" + price,
		SupplierID:   supplierID,
		SupplierName: supplier,
		SupplierSlug: slugOf(supplier),
		ProductName:  "product",
		CurrentPrice: dec(price),
		StockStatus:  stock,
	}
}
