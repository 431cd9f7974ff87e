// Package cache provides the catalog-result cache injected into the
// supplier matcher. Values are stored as JSON so every backend hands back
// an independent copy.
package cache

import (
	"context"
	"strings"
)

// Cache is a TTL cache with explicit invalidation
type Cache interface {
	// Get decodes the value for key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix and returns the count.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Clear removes everything this cache owns.
	Clear(ctx context.Context) (int, error)
}

const catalogNamespace = "catalog:"

// CatalogKey is the key for one supplier's raw results for a query
func CatalogKey(supplierSlug, query string) string {
	return SupplierPrefix(supplierSlug) + strings.ToLower(strings.TrimSpace(query))
}

// SupplierPrefix covers every cached query for one supplier
func SupplierPrefix(supplierSlug string) string {
	return catalogNamespace + supplierSlug + ":"
}
