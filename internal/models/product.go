package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockStatus is the normalised availability reported by a supplier
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockUnknown    StockStatus = "unknown"
)

// Available reports whether a product with this status can be bought.
// Unknown counts as available: a listed, priced product is purchasable
// unless the supplier says otherwise.
func (s StockStatus) Available() bool {
	return s != StockOutOfStock
}

// CatalogProduct is a product as returned by any supplier catalog adapter,
// normalised to a single shape regardless of the source schema.
type CatalogProduct struct {
	ProductID    string            `json:"product_id"`
	Name         string            `json:"name"`
	Brand        *string           `json:"brand,omitempty"`
	SKU          *string           `json:"sku,omitempty"`
	Price        decimal.Decimal   `json:"price"`
	RegularPrice *decimal.Decimal  `json:"regular_price,omitempty"`
	StockStatus  StockStatus       `json:"stock_status"`
	URL          string            `json:"url"`
	ImageURL     *string           `json:"image_url,omitempty"`
	Delivery     *SupplierDelivery `json:"delivery,omitempty"`
}

// SupplierProduct is a row in a database-backed supplier catalog
type SupplierProduct struct {
	ID           uuid.UUID        `json:"id"`
	SupplierID   uuid.UUID        `json:"supplier_id"`
	ProductCode  string           `json:"product_code"`
	Name         string           `json:"name"`
	Brand        *string          `json:"brand,omitempty"`
	SKU          *string          `json:"sku,omitempty"`
	Price        decimal.Decimal  `json:"price"`
	RegularPrice *decimal.Decimal `json:"regular_price,omitempty"`
	StockStatus  StockStatus      `json:"stock_status"`
	URL          string           `json:"url"`
	ImageURL     *string          `json:"image_url,omitempty"`
	Similarity   float64          `json:"similarity,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// CatalogProduct converts a stored row to the adapter-neutral shape
func (p SupplierProduct) CatalogProduct() CatalogProduct {
	return CatalogProduct{
		ProductID:    p.ProductCode,
		Name:         p.Name,
		Brand:        p.Brand,
		SKU:          p.SKU,
		Price:        p.Price,
		RegularPrice: p.RegularPrice,
		StockStatus:  p.StockStatus,
		URL:          p.URL,
		ImageURL:     p.ImageURL,
	}
}

// UpsertProductRequest is one product in a catalog upload
type UpsertProductRequest struct {
	ProductCode  string           `json:"product_code"`
	Name         string           `json:"name"`
	Brand        *string          `json:"brand,omitempty"`
	SKU          *string          `json:"sku,omitempty"`
	Price        decimal.Decimal  `json:"price"`
	RegularPrice *decimal.Decimal `json:"regular_price,omitempty"`
	StockStatus  StockStatus      `json:"stock_status"`
	URL          string           `json:"url"`
	ImageURL     *string          `json:"image_url,omitempty"`
}

// UpsertProductsRequest is the request body for a catalog upload
type UpsertProductsRequest struct {
	Products []UpsertProductRequest `json:"products"`
}

// UpsertProductsResponse reports the outcome of a catalog upload
type UpsertProductsResponse struct {
	Upserted int      `json:"upserted"`
	Errors   []string `json:"errors,omitempty"`
}

// Validate checks one uploaded product row
func (r UpsertProductRequest) Validate() error {
	switch {
	case r.ProductCode == "":
		return errors.New("product_code is required")
	case r.Name == "":
		return errors.New("name is required")
	case r.Price.IsNegative():
		return errors.New("price must not be negative")
	case r.RegularPrice != nil && r.RegularPrice.IsNegative():
		return errors.New("regular_price must not be negative")
	}
	switch r.StockStatus {
	case "", StockInStock, StockLowStock, StockOutOfStock, StockUnknown:
		return nil
	}
	return fmt.Errorf("unknown stock_status %q", r.StockStatus)
}
