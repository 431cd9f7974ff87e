// Package catalog adapts supplier product catalogs to one normalised shape.
// Each catalog type has its own adapter; the matcher only ever sees
// models.CatalogProduct.
package catalog

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/foxxcyber/trade-basket/internal/models"
)

var (
	ErrUnsupportedCatalog = errors.New("unsupported catalog type")
	ErrMissingEndpoint    = errors.New("catalog endpoint is required")
	ErrInvalidPrice       = errors.New("invalid price")
)

// Catalog is a searchable supplier product catalog. Search must be
// side-effect free and safe for concurrent use.
type Catalog interface {
	Supplier() models.Supplier
	Search(ctx context.Context, query string) ([]models.CatalogProduct, error)
}

// Provider yields the catalogs to search for one comparison
type Provider interface {
	Catalogs(ctx context.Context) ([]Catalog, error)
}

// List is a fixed set of catalogs
type List []Catalog

func (l List) Catalogs(context.Context) ([]Catalog, error) {
	return l, nil
}

// Filter keeps the catalogs whose supplier slug is listed. No slugs keeps all.
func Filter(catalogs []Catalog, slugs []string) []Catalog {
	if len(slugs) == 0 {
		return catalogs
	}
	want := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		want[strings.ToLower(strings.TrimSpace(s))] = true
	}

	var filtered []Catalog
	for _, c := range catalogs {
		if want[c.Supplier().Slug] {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// moneyToken is the first amount in a displayed price, with its currency
// sign or pence suffix when present
var moneyToken = regexp.MustCompile(`(?i)(£)?\s*(\d[\d,]*(?:\.\d+)?)\s*(p\b)?`)

// ParsePrice reads a displayed price such as "£1,234.50", "12.3", "99p" or
// "£12.99 inc. VAT". When several amounts are shown the first one wins.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	m := moneyToken.FindStringSubmatch(s)
	if m == nil {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	amount := strings.ReplaceAll(m[2], ",", "")
	price, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	// Some sites render pence as "99p"
	if m[1] == "" && m[3] != "" && !strings.Contains(amount, ".") {
		price = price.Shift(-2)
	}
	return price, nil
}

// NormalizeStock maps the many ways suppliers describe availability
func NormalizeStock(s string) models.StockStatus {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return models.StockUnknown
	case s == string(models.StockInStock), s == string(models.StockLowStock),
		s == string(models.StockOutOfStock), s == string(models.StockUnknown):
		return models.StockStatus(s)
	case strings.Contains(s, "out of stock"), strings.Contains(s, "unavailable"),
		strings.Contains(s, "notify"), strings.Contains(s, "back in stock"),
		strings.Contains(s, "pre-order"), strings.Contains(s, "preorder"),
		strings.Contains(s, "coming soon"),
		strings.Contains(s, "not available"), strings.Contains(s, "sold out"),
		strings.Contains(s, "discontinued"),
		s == "false", s == "no", s == "0":
		return models.StockOutOfStock
	case strings.Contains(s, "low"), strings.Contains(s, "limited"),
		strings.Contains(s, "only"), strings.Contains(s, "few left"):
		return models.StockLowStock
	case strings.Contains(s, "in stock"), strings.Contains(s, "available"),
		s == "true", s == "yes", s == "instock":
		return models.StockInStock
	}
	return models.StockUnknown
}
