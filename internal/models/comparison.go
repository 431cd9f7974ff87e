package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SingleSupplierFallbackName is reported when no supplier can fulfil the
// whole basket.
const SingleSupplierFallbackName = "Multiple (no single supplier available)"

// Recommendation values for an optimised basket
const (
	RecommendSingleSupplier = "single_supplier"
	RecommendMultiSupplier  = "multi_supplier"
	RecommendNone           = "none"
)

// SupplierMatch is one candidate product from one supplier for one item
type SupplierMatch struct {
	ProductID          string           `json:"product_id"`
	SupplierID         uuid.UUID        `json:"supplier_id"`
	SupplierName       string           `json:"supplier_name"`
	SupplierSlug       string           `json:"supplier_slug"`
	ProductName        string           `json:"product_name"`
	Brand              *string          `json:"brand,omitempty"`
	SKU                *string          `json:"sku,omitempty"`
	CurrentPrice       decimal.Decimal  `json:"current_price"`
	RegularPrice       *decimal.Decimal `json:"regular_price,omitempty"`
	IsOnSale           bool             `json:"is_on_sale"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	StockStatus        StockStatus      `json:"stock_status"`
	ProductURL         string           `json:"product_url"`
	ImageURL           *string          `json:"image_url,omitempty"`
	Delivery           SupplierDelivery `json:"delivery"`
	IsRecommended      bool             `json:"is_recommended"`
	Relevance          float64          `json:"relevance"`
}

// ComparisonItem is a parsed item together with its supplier candidates
type ComparisonItem struct {
	Name         string           `json:"name"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Unit         string           `json:"unit"`
	OriginalText string           `json:"original_text,omitempty"`
	Matches      []SupplierMatch  `json:"matches"`
	BestPrice    *decimal.Decimal `json:"best_price"`
	BestSupplier *string          `json:"best_supplier"`
}

// SupplierSummary aggregates the items sourced from one supplier
type SupplierSummary struct {
	SupplierID   uuid.UUID        `json:"supplier_id"`
	SupplierName string           `json:"supplier_name"`
	SupplierSlug string           `json:"supplier_slug"`
	ItemCount    int              `json:"item_count"`
	Total        decimal.Decimal  `json:"total"`
	Delivery     SupplierDelivery `json:"delivery"`
}

// OptimisedBasket compares the per-item cheapest assignment against the
// best single-supplier option
type OptimisedBasket struct {
	Total               decimal.Decimal   `json:"total"`
	SingleSupplierTotal decimal.Decimal   `json:"single_supplier_total"`
	SingleSupplierName  string            `json:"single_supplier_name"`
	Savings             decimal.Decimal   `json:"savings"`
	SavingsPercentage   decimal.Decimal   `json:"savings_percentage"`
	SupplierSplit       []SupplierSummary `json:"supplier_split"`
	Recommendation      string            `json:"recommendation"`
	UnsourcedCount      int               `json:"unsourced_count"`
}

// ComparisonResult is the full response for one comparison request
type ComparisonResult struct {
	Items           []ComparisonItem  `json:"items"`
	OptimisedBasket OptimisedBasket   `json:"optimised_basket"`
	Suppliers       []SupplierSummary `json:"suppliers"`
}

// CompareRequest is the API request body for a text comparison
type CompareRequest struct {
	Content   string   `json:"content"`
	Suppliers []string `json:"suppliers,omitempty"`
	Title     string   `json:"title,omitempty"`
}

// SavedComparison is a comparison persisted for a user
type SavedComparison struct {
	ID        uuid.UUID        `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Source    string           `json:"source"`
	InputText string           `json:"input_text"`
	PhotoID   *uuid.UUID       `json:"photo_id,omitempty"`
	Result    ComparisonResult `json:"result"`
	Total     decimal.Decimal  `json:"total"`
	Savings   decimal.Decimal  `json:"savings"`
	ItemCount int              `json:"item_count"`
	CreatedAt time.Time        `json:"created_at"`
}

// SavedComparisonSummary is a list entry without the full result payload
type SavedComparisonSummary struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	Source    string          `json:"source"`
	Total     decimal.Decimal `json:"total"`
	Savings   decimal.Decimal `json:"savings"`
	ItemCount int             `json:"item_count"`
	CreatedAt time.Time       `json:"created_at"`
}

// ComparisonResponse wraps a result with its saved id, when persisted
type ComparisonResponse struct {
	ID            *uuid.UUID `json:"id,omitempty"`
	ExtractedText string     `json:"extracted_text,omitempty"`
	PhotoURL      string     `json:"photo_url,omitempty"`
	ComparisonResult
}

// Comparison sources
const (
	SourceText  = "text"
	SourcePhoto = "photo"
)

// Unsourced reports whether no supplier can currently supply the item
func (i ComparisonItem) Unsourced() bool {
	return i.BestPrice == nil
}
