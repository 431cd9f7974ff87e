package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/foxxcyber/trade-basket/internal/models"
)

func TestAssembleComparison(t *testing.T) {
	items := splitBasket()
	basket := NewBasketOptimiser(decimal.Zero).Optimise(items)

	result, err := AssembleComparison(items, basket)
	if err != nil {
		t.Fatalf("AssembleComparison() error = %v", err)
	}

	if len(result.Items) != 2 {
		t.Errorf("items = %d, want 2", len(result.Items))
	}
	if !result.OptimisedBasket.Total.Equal(basket.Total) {
		t.Errorf("basket was altered")
	}

	if len(result.Suppliers) != 2 {
		t.Fatalf("expected each supplier once, got %+v", result.Suppliers)
	}
	for _, s := range result.Suppliers {
		if s.ItemCount != 2 {
			t.Errorf("%s item count = %d, want 2", s.SupplierName, s.ItemCount)
		}
	}
	if got := result.Suppliers[0].Total.StringFixed(2); got != "20.00" {
		t.Errorf("Supplier A total = %s, want 20.00", got)
	}
	if got := result.Suppliers[1].Total.StringFixed(2); got != "21.50" {
		t.Errorf("Supplier B total = %s, want 21.50", got)
	}
}

func TestAssembleComparisonCountsOnlyAvailable(t *testing.T) {
	items := []models.ComparisonItem{
		item("a", "1",
			match(supplierA, "Supplier A", "1.00", models.StockOutOfStock),
			match(supplierB, "Supplier B", "2.00", models.StockInStock),
		),
		item("b", "1"),
	}

	result, err := AssembleComparison(items, NewBasketOptimiser(decimal.Zero).Optimise(items))
	if err != nil {
		t.Fatalf("AssembleComparison() error = %v", err)
	}

	if len(result.Suppliers) != 2 {
		t.Fatalf("suppliers = %+v", result.Suppliers)
	}
	if a := result.Suppliers[0]; a.ItemCount != 0 || !a.Total.IsZero() {
		t.Errorf("out of stock supplier should count nothing, got %+v", a)
	}
	if result.Items[1].Matches == nil {
		t.Error("item without candidates should have an empty matches slice")
	}
}

func TestAssembleComparisonInvalidQuantity(t *testing.T) {
	for _, qty := range []string{"0", "-2"} {
		items := []models.ComparisonItem{item("sockets", qty)}

		_, err := AssembleComparison(items, models.OptimisedBasket{})
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity %s: error = %v, want ErrInvalidQuantity", qty, err)
		}
		var qErr *InvalidQuantityError
		if !errors.As(err, &qErr) || qErr.Item != "sockets" {
			t.Errorf("quantity %s: expected *InvalidQuantityError for sockets, got %v", qty, err)
		}
	}
}

func TestAssembleComparisonEmpty(t *testing.T) {
	result, err := AssembleComparison(nil, NewBasketOptimiser(decimal.Zero).Optimise(nil))
	if err != nil {
		t.Fatalf("AssembleComparison() error = %v", err)
	}
	if len(result.Items) != 0 || len(result.Suppliers) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if result.Suppliers == nil || result.OptimisedBasket.SupplierSplit == nil {
		t.Error("empty result should use empty slices")
	}
}
