package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/foxxcyber/trade-basket/internal/models"
)

// QueryPlaceholder is replaced with the escaped search query in endpoints
const QueryPlaceholder = "{query}"

// flexValue accepts a JSON string, number, or bool and keeps its text
type flexValue string

func (v *flexValue) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		*v = flexValue(unquoted)
		return nil
	}
	*v = flexValue(s)
	return nil
}

type jsonAPIProduct struct {
	ID       flexValue                `json:"id"`
	Name     string                   `json:"name"`
	Brand    string                   `json:"brand"`
	SKU      flexValue                `json:"sku"`
	Price    flexValue                `json:"price"`
	WasPrice flexValue                `json:"was_price"`
	Stock    flexValue                `json:"stock"`
	URL      string                   `json:"url"`
	Image    string                   `json:"image"`
	Delivery *models.SupplierDelivery `json:"delivery"`
}

type jsonAPIResponse struct {
	Products []jsonAPIProduct `json:"products"`
	Results  []jsonAPIProduct `json:"results"`
}

// JSONAPI searches a supplier's JSON product search endpoint
type JSONAPI struct {
	supplier models.Supplier
	client   *HTTPClient
}

// NewJSONAPI creates an adapter for a json_api supplier
func NewJSONAPI(supplier models.Supplier, doer HTTPDoer) (*JSONAPI, error) {
	if supplier.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	return &JSONAPI{
		supplier: supplier,
		client:   NewHTTPClient(doer, supplier.Slug, supplier.RateLimitRPS),
	}, nil
}

func (a *JSONAPI) Supplier() models.Supplier { return a.supplier }

func (a *JSONAPI) Search(ctx context.Context, query string) ([]models.CatalogProduct, error) {
	searchURL, err := searchURL(a.supplier.Endpoint, query)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"Accept": "application/json"}
	if a.supplier.APIKey != "" {
		headers["Authorization"] = "Bearer " + a.supplier.APIKey
	}

	var resp jsonAPIResponse
	if err := a.client.GetJSON(ctx, searchURL, headers, &resp); err != nil {
		return nil, fmt.Errorf("search %s: %w", a.supplier.Slug, err)
	}

	raw := resp.Products
	if len(raw) == 0 {
		raw = resp.Results
	}

	products := make([]models.CatalogProduct, 0, len(raw))
	for _, p := range raw {
		product, ok := a.normalize(p)
		if ok {
			products = append(products, product)
		}
	}
	return products, nil
}

// normalize drops rows without an id, a name or a usable price
func (a *JSONAPI) normalize(p jsonAPIProduct) (models.CatalogProduct, bool) {
	name := strings.TrimSpace(p.Name)
	if p.ID == "" || name == "" {
		return models.CatalogProduct{}, false
	}
	price, err := ParsePrice(string(p.Price))
	if err != nil {
		return models.CatalogProduct{}, false
	}

	product := models.CatalogProduct{
		ProductID:   string(p.ID),
		Name:        name,
		Price:       price,
		StockStatus: NormalizeStock(string(p.Stock)),
		URL:         resolveURL(a.supplier.Endpoint, p.URL),
		Delivery:    p.Delivery,
	}
	if p.Brand != "" {
		brand := p.Brand
		product.Brand = &brand
	}
	if p.SKU != "" {
		sku := string(p.SKU)
		product.SKU = &sku
	}
	if p.WasPrice != "" {
		if was, err := ParsePrice(string(p.WasPrice)); err == nil {
			product.RegularPrice = &was
		}
	}
	if p.Image != "" {
		image := resolveURL(a.supplier.Endpoint, p.Image)
		product.ImageURL = &image
	}
	return product, true
}

// searchURL fills the query into an endpoint, either via the placeholder
// or as a q parameter.
func searchURL(endpoint, query string) (string, error) {
	if strings.Contains(endpoint, QueryPlaceholder) {
		return strings.ReplaceAll(endpoint, QueryPlaceholder, url.QueryEscape(query)), nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(strings.ReplaceAll(base, QueryPlaceholder, ""))
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
