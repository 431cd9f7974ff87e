package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/foxxcyber/trade-basket/internal/models"
)

func jsonSupplier(endpoint string) models.Supplier {
	return models.Supplier{
		ID:          uuid.New(),
		Name:        "Sparky Direct",
		Slug:        "sparky-direct",
		CatalogType: models.CatalogTypeJSONAPI,
		Endpoint:    endpoint,
		APIKey:      "secret-key",
	}
}

func TestJSONAPISearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "socket outlet" {
			t.Errorf("query = %q, want %q", got, "socket outlet")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"products":[
			{"id": 101, "name": "Double Switched Socket 13A", "brand": "MK", "price": "£4.20", "was_price": 5.00, "stock": "In stock", "url": "/p/101", "image": "/img/101.jpg"},
			{"id": "102", "name": "Single Socket", "price": 2.1, "stock": false, "url": "https://shop.example.com/p/102"},
			{"id": "", "name": "No id", "price": 1},
			{"id": "104", "name": "Price on application", "price": "POA"}
		]}`))
	}))
	defer server.Close()

	adapter, err := NewJSONAPI(jsonSupplier(server.URL+"/search"), server.Client())
	if err != nil {
		t.Fatalf("NewJSONAPI() error = %v", err)
	}

	products, err := adapter.Search(context.Background(), "socket outlet")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("Search() returned %d products, want 2", len(products))
	}

	first := products[0]
	if first.ProductID != "101" || first.Price.String() != "4.2" {
		t.Errorf("first product = %+v", first)
	}
	if first.RegularPrice == nil || first.RegularPrice.String() != "5" {
		t.Errorf("first RegularPrice = %v, want 5", first.RegularPrice)
	}
	if first.StockStatus != models.StockInStock {
		t.Errorf("first StockStatus = %s", first.StockStatus)
	}
	if first.URL != server.URL+"/p/101" {
		t.Errorf("first URL = %q, want resolved against endpoint", first.URL)
	}
	if first.Brand == nil || *first.Brand != "MK" {
		t.Errorf("first Brand = %v", first.Brand)
	}

	if products[1].StockStatus != models.StockOutOfStock {
		t.Errorf("second StockStatus = %s, want out_of_stock", products[1].StockStatus)
	}
}

func TestJSONAPIRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results":[{"id":"1","name":"20A MCB","price":"3.10"}]}`))
	}))
	defer server.Close()

	adapter, _ := NewJSONAPI(jsonSupplier(server.URL), server.Client())
	products, err := adapter.Search(context.Background(), "mcb")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("Search() returned %d products, want 1", len(products))
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
}

func TestJSONAPIClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter, _ := NewJSONAPI(jsonSupplier(server.URL), server.Client())
	_, err := adapter.Search(context.Background(), "mcb")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Search() error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", httpErr.StatusCode)
	}
}

func TestNewJSONAPIRequiresEndpoint(t *testing.T) {
	if _, err := NewJSONAPI(jsonSupplier(""), nil); !errors.Is(err, ErrMissingEndpoint) {
		t.Errorf("NewJSONAPI() error = %v, want ErrMissingEndpoint", err)
	}
}
