package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/foxxcyber/trade-basket/internal/models"
)

// DefaultSelectors match the schema.org product markup most trade sites use
var DefaultSelectors = models.HTMLSelectors{
	Product:      "[itemtype$='schema.org/Product'], .product-card",
	Name:         "[itemprop='name'], .product-name",
	Price:        "[itemprop='price'], .price",
	RegularPrice: ".was-price, .rrp",
	Stock:        "[itemprop='availability'], .stock",
	Link:         "a[href]",
	Image:        "img[src]",
	Brand:        "[itemprop='brand'], .brand",
}

// HTML scrapes a supplier's search results page
type HTML struct {
	supplier  models.Supplier
	client    *HTTPClient
	selectors models.HTMLSelectors
}

// NewHTML creates an adapter for an html supplier. Selectors not set on the
// supplier fall back to DefaultSelectors.
func NewHTML(supplier models.Supplier, doer HTTPDoer) (*HTML, error) {
	if supplier.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	selectors := DefaultSelectors
	if s := supplier.Selectors; s != nil {
		override(&selectors.Product, s.Product)
		override(&selectors.Name, s.Name)
		override(&selectors.Price, s.Price)
		override(&selectors.RegularPrice, s.RegularPrice)
		override(&selectors.Stock, s.Stock)
		override(&selectors.Link, s.Link)
		override(&selectors.Image, s.Image)
		override(&selectors.Brand, s.Brand)
	}
	return &HTML{
		supplier:  supplier,
		client:    NewHTTPClient(doer, supplier.Slug, supplier.RateLimitRPS),
		selectors: selectors,
	}, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (a *HTML) Supplier() models.Supplier { return a.supplier }

func (a *HTML) Search(ctx context.Context, query string) ([]models.CatalogProduct, error) {
	searchURL, err := searchURL(a.supplier.Endpoint, query)
	if err != nil {
		return nil, err
	}

	body, err := a.client.Get(ctx, searchURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", a.supplier.Slug, err)
	}
	return a.parse(body)
}

func (a *HTML) parse(body []byte) ([]models.CatalogProduct, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	products := []models.CatalogProduct{}
	doc.Find(a.selectors.Product).Each(func(i int, s *goquery.Selection) {
		name := cleanText(s.Find(a.selectors.Name).First().Text())
		price, err := ParsePrice(attrOrText(s.Find(a.selectors.Price).First(), "content"))
		if name == "" || err != nil {
			return
		}

		link, _ := s.Find(a.selectors.Link).First().Attr("href")
		product := models.CatalogProduct{
			Name:        name,
			Price:       price,
			StockStatus: NormalizeStock(stockText(s.Find(a.selectors.Stock).First())),
			URL:         resolveURL(a.supplier.Endpoint, link),
		}

		product.ProductID = productID(s, product.URL)
		if product.ProductID == "" {
			return
		}

		if sku, ok := s.Attr("data-sku"); ok && sku != "" {
			product.SKU = &sku
		}
		if brand := cleanText(s.Find(a.selectors.Brand).First().Text()); brand != "" {
			product.Brand = &brand
		}
		if was, err := ParsePrice(s.Find(a.selectors.RegularPrice).First().Text()); err == nil && was.IsPositive() {
			product.RegularPrice = &was
		}
		if src, ok := s.Find(a.selectors.Image).First().Attr("src"); ok && src != "" {
			image := resolveURL(a.supplier.Endpoint, src)
			product.ImageURL = &image
		}

		products = append(products, product)
	})

	return products, nil
}

// productID prefers an explicit data attribute and falls back to the link
func productID(s *goquery.Selection, link string) string {
	for _, attr := range []string{"data-product-id", "data-id", "data-sku"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return link
}

// stockText reads schema.org availability links as well as visible labels
func stockText(s *goquery.Selection) string {
	if href, ok := s.Attr("href"); ok {
		return schemaAvailability(href)
	}
	if content, ok := s.Attr("content"); ok {
		return schemaAvailability(content)
	}
	return s.Text()
}

func schemaAvailability(v string) string {
	switch {
	case strings.HasSuffix(v, "/InStock"):
		return string(models.StockInStock)
	case strings.HasSuffix(v, "/LimitedAvailability"):
		return string(models.StockLowStock)
	case strings.HasSuffix(v, "/OutOfStock"), strings.HasSuffix(v, "/Discontinued"):
		return string(models.StockOutOfStock)
	}
	return v
}

func attrOrText(s *goquery.Selection, attr string) string {
	if v, ok := s.Attr(attr); ok && v != "" {
		return v
	}
	return s.Text()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
