package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/foxxcyber/trade-basket/internal/models"
)

const searchPage = `<html><body>
<div class="results">
  <div class="product-card" data-product-id="TE25-100" data-sku="6242Y25">
    <a href="/p/te25-100"><img src="/img/te25.jpg"></a>
    <span class="brand">Prysmian</span>
    <h3 class="product-name">2.5mm  Twin &amp; Earth Cable 100m</h3>
    <span class="price">£74.99</span>
    <span class="was-price">£89.99</span>
    <span class="stock">In stock</span>
  </div>
  <div class="product-card" data-product-id="TE15-100">
    <a href="/p/te15-100"></a>
    <h3 class="product-name">1.5mm Twin &amp; Earth Cable 100m</h3>
    <span class="price">£52.00</span>
    <span class="stock">Out of stock</span>
  </div>
  <div class="product-card">
    <h3 class="product-name">No price</h3>
  </div>
</div>
</body></html>`

func TestHTMLSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(searchPage))
	}))
	defer server.Close()

	adapter, err := NewHTML(models.Supplier{
		ID:          uuid.New(),
		Name:        "Trade Counter",
		Slug:        "trade-counter",
		CatalogType: models.CatalogTypeHTML,
		Endpoint:    server.URL + "/search?term={query}",
	}, server.Client())
	if err != nil {
		t.Fatalf("NewHTML() error = %v", err)
	}

	products, err := adapter.Search(context.Background(), "twin and earth")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("Search() returned %d products, want 2", len(products))
	}

	p := products[0]
	if p.ProductID != "TE25-100" {
		t.Errorf("ProductID = %q", p.ProductID)
	}
	if p.Name != "2.5mm Twin & Earth Cable 100m" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.Price.String() != "74.99" {
		t.Errorf("Price = %s", p.Price)
	}
	if p.RegularPrice == nil || p.RegularPrice.String() != "89.99" {
		t.Errorf("RegularPrice = %v", p.RegularPrice)
	}
	if p.SKU == nil || *p.SKU != "6242Y25" {
		t.Errorf("SKU = %v", p.SKU)
	}
	if p.Brand == nil || *p.Brand != "Prysmian" {
		t.Errorf("Brand = %v", p.Brand)
	}
	if p.URL != server.URL+"/p/te25-100" {
		t.Errorf("URL = %q", p.URL)
	}
	if p.ImageURL == nil || *p.ImageURL != server.URL+"/img/te25.jpg" {
		t.Errorf("ImageURL = %v", p.ImageURL)
	}
	if products[1].StockStatus != models.StockOutOfStock {
		t.Errorf("second StockStatus = %s", products[1].StockStatus)
	}
}

func TestHTMLSchemaOrgMarkup(t *testing.T) {
	page := `<div itemscope itemtype="https://schema.org/Product" data-id="mcb-20">
  <span itemprop="name">20A Type B MCB</span>
  <meta itemprop="price" content="3.45">
  <link itemprop="availability" href="https://schema.org/LimitedAvailability">
  <a href="https://shop.example.com/mcb-20">view</a>
</div>`

	adapter, _ := NewHTML(models.Supplier{Slug: "schema", Endpoint: "https://shop.example.com/s"}, nil)
	products, err := adapter.parse([]byte(page))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("parse() returned %d products, want 1", len(products))
	}
	if products[0].Price.String() != "3.45" {
		t.Errorf("Price = %s", products[0].Price)
	}
	if products[0].StockStatus != models.StockLowStock {
		t.Errorf("StockStatus = %s", products[0].StockStatus)
	}
	if products[0].ProductID != "mcb-20" {
		t.Errorf("ProductID = %q", products[0].ProductID)
	}
}
