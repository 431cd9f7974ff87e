package models

import (
	"time"

	"github.com/google/uuid"
)

// CatalogType identifies how a supplier's catalog is reached.
type CatalogType string

const (
	CatalogTypeDatabase CatalogType = "database"
	CatalogTypeJSONAPI  CatalogType = "json_api"
	CatalogTypeHTML     CatalogType = "html"
)

// Valid reports whether t is a known catalog type.
func (t CatalogType) Valid() bool {
	switch t {
	case CatalogTypeDatabase, CatalogTypeJSONAPI, CatalogTypeHTML:
		return true
	}
	return false
}

// SupplierDelivery holds human-readable lead times. Not used for cost.
type SupplierDelivery struct {
	ClickCollect string `json:"click_collect"`
	Standard     string `json:"standard"`
	NextDay      string `json:"next_day"`
}

// HTMLSelectors configures scraping for suppliers without an API.
// Empty fields fall back to the scraper defaults.
type HTMLSelectors struct {
	Product      string `json:"product,omitempty"`
	Name         string `json:"name,omitempty"`
	Price        string `json:"price,omitempty"`
	RegularPrice string `json:"regular_price,omitempty"`
	Stock        string `json:"stock,omitempty"`
	Link         string `json:"link,omitempty"`
	Image        string `json:"image,omitempty"`
	Brand        string `json:"brand,omitempty"`
}

// Supplier is a merchant whose catalog is searched during a comparison
type Supplier struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	CatalogType  CatalogType      `json:"catalog_type"`
	Endpoint     string           `json:"endpoint,omitempty"`
	APIKey       string           `json:"-"`
	HasAPIKey    bool             `json:"has_api_key"`
	RateLimitRPS float64          `json:"rate_limit_rps"`
	Selectors    *HTMLSelectors   `json:"selectors,omitempty"`
	Delivery     SupplierDelivery `json:"delivery"`
	Enabled      bool             `json:"enabled"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SupplierWithStats includes catalog size for database-backed suppliers
type SupplierWithStats struct {
	Supplier
	ProductCount int `json:"product_count"`
}

// CreateSupplierRequest is the request body for registering a supplier
type CreateSupplierRequest struct {
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	CatalogType  CatalogType      `json:"catalog_type"`
	Endpoint     string           `json:"endpoint"`
	APIKey       string           `json:"api_key"`
	RateLimitRPS float64          `json:"rate_limit_rps"`
	Selectors    *HTMLSelectors   `json:"selectors,omitempty"`
	Delivery     SupplierDelivery `json:"delivery"`
	Enabled      *bool            `json:"enabled,omitempty"`
}

// UpdateSupplierRequest is the request body for updating a supplier.
// A nil APIKey keeps the stored key; an empty string clears it.
type UpdateSupplierRequest struct {
	Name         *string           `json:"name,omitempty"`
	CatalogType  *CatalogType      `json:"catalog_type,omitempty"`
	Endpoint     *string           `json:"endpoint,omitempty"`
	APIKey       *string           `json:"api_key,omitempty"`
	RateLimitRPS *float64          `json:"rate_limit_rps,omitempty"`
	Selectors    *HTMLSelectors    `json:"selectors,omitempty"`
	Delivery     *SupplierDelivery `json:"delivery,omitempty"`
	Enabled      *bool             `json:"enabled,omitempty"`
}
