package cache

import (
	"context"
	"testing"
	"time"
)

type product struct {
	ID    string `json:"id"`
	Price string `json:"price"`
}

func TestMemoryExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemory(time.Minute)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []product{{ID: "a", Price: "1.00"}}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got []product
	found, err := c.Get(ctx, "k", &got)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v; want hit", found, err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Get() value = %+v", got)
	}

	now = now.Add(59 * time.Second)
	if found, _ := c.Get(ctx, "k", &got); !found {
		t.Error("entry expired before its TTL")
	}

	now = now.Add(time.Second)
	if found, _ := c.Get(ctx, "k", &got); found {
		t.Error("entry still returned at its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed, Len() = %d", c.Len())
	}
}

func TestMemoryReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	stored := []product{{ID: "a"}}
	if err := c.Set(ctx, "k", stored); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	stored[0].ID = "mutated"

	var first []product
	c.Get(ctx, "k", &first)
	first[0].ID = "also mutated"

	var second []product
	c.Get(ctx, "k", &second)
	if second[0].ID != "a" {
		t.Errorf("cached value changed to %q", second[0].ID)
	}
}

func TestMemoryInvalidation(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Hour)

	keys := []string{
		CatalogKey("cef", "socket"),
		CatalogKey("cef", "cable"),
		CatalogKey("screwfix", "socket"),
	}
	for _, k := range keys {
		if err := c.Set(ctx, k, "v"); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}

	removed, err := c.DeletePrefix(ctx, SupplierPrefix("cef"))
	if err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("DeletePrefix() removed %d, want 2", removed)
	}

	var v string
	if found, _ := c.Get(ctx, CatalogKey("screwfix", "socket"), &v); !found {
		t.Error("other supplier's entry was invalidated")
	}

	if err := c.Delete(ctx, CatalogKey("screwfix", "socket")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after deleting everything", c.Len())
	}

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	if removed, _ := c.Clear(ctx); removed != 2 {
		t.Errorf("Clear() removed %d, want 2", removed)
	}
}

func TestCatalogKeyNormalisesQuery(t *testing.T) {
	if got, want := CatalogKey("cef", "  Socket Outlet "), "catalog:cef:socket outlet"; got != want {
		t.Errorf("CatalogKey() = %q, want %q", got, want)
	}
}

func TestEscapeGlob(t *testing.T) {
	if got, want := escapeGlob(`a*b?[c]`), `a\*b\?\[c\]`; got != want {
		t.Errorf("escapeGlob() = %q, want %q", got, want)
	}
}
