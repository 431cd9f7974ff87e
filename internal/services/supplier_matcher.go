package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/foxxcyber/trade-basket/internal/cache"
	"github.com/foxxcyber/trade-basket/internal/catalog"
	"github.com/foxxcyber/trade-basket/internal/models"
)

// Matcher defaults
const (
	DefaultLookupConcurrency     = 12
	DefaultLookupTimeout         = 5 * time.Second
	DefaultRelevanceThreshold    = 0.3
	DefaultMaxMatchesPerSupplier = 3
)

// MatcherConfig tunes the supplier fan-out
type MatcherConfig struct {
	Concurrency           int
	LookupTimeout         time.Duration
	RelevanceThreshold    float64
	MaxMatchesPerSupplier int
}

func (c MatcherConfig) withDefaults() MatcherConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultLookupConcurrency
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = DefaultLookupTimeout
	}
	if c.RelevanceThreshold <= 0 {
		c.RelevanceThreshold = DefaultRelevanceThreshold
	}
	if c.MaxMatchesPerSupplier <= 0 {
		c.MaxMatchesPerSupplier = DefaultMaxMatchesPerSupplier
	}
	return c
}

// SupplierMatcher queries supplier catalogs for each parsed item
type SupplierMatcher struct {
	cfg    MatcherConfig
	cache  cache.Cache
	logger *slog.Logger
}

// NewSupplierMatcher creates a matcher. c may be nil to disable caching.
func NewSupplierMatcher(cfg MatcherConfig, c cache.Cache, logger *slog.Logger) *SupplierMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SupplierMatcher{
		cfg:    cfg.withDefaults(),
		cache:  c,
		logger: logger,
	}
}

// Match returns the candidates for one item across the given catalogs. It
// never fails: a supplier whose lookup errors or times out contributes no
// candidates.
func (m *SupplierMatcher) Match(ctx context.Context, item models.ParsedMaterialItem, catalogs []catalog.Catalog) []models.SupplierMatch {
	return m.MatchAll(ctx, []models.ParsedMaterialItem{item}, catalogs)[0].Matches
}

// MatchAll looks up every (item, catalog) pair concurrently, bounded by the
// configured concurrency, and returns one ComparisonItem per input item in
// input order.
func (m *SupplierMatcher) MatchAll(ctx context.Context, items []models.ParsedMaterialItem, catalogs []catalog.Catalog) []models.ComparisonItem {
	// One slot per pair; each goroutine writes only its own slot.
	slots := make([][][]models.SupplierMatch, len(items))
	for i := range slots {
		slots[i] = make([][]models.SupplierMatch, len(catalogs))
	}

	var g errgroup.Group
	g.SetLimit(m.cfg.Concurrency)
	for i := range items {
		for j := range catalogs {
			g.Go(func() error {
				slots[i][j] = m.lookup(ctx, items[i], catalogs[j])
				return nil
			})
		}
	}
	g.Wait()

	result := make([]models.ComparisonItem, len(items))
	for i, item := range items {
		var matches []models.SupplierMatch
		for _, found := range slots[i] {
			matches = append(matches, found...)
		}
		result[i] = newComparisonItem(item, matches)
	}
	return result
}

// lookup searches one catalog for one item and ranks the candidates
func (m *SupplierMatcher) lookup(ctx context.Context, item models.ParsedMaterialItem, c catalog.Catalog) []models.SupplierMatch {
	supplier := c.Supplier()
	query := NormalizeItemName(item.Name)

	products, err := m.search(ctx, c, query)
	if err != nil {
		lookupErr := &SupplierLookupError{Supplier: supplier.Slug, Item: item.Name, Err: err}
		m.logger.Warn("supplier lookup failed",
			"supplier", supplier.Slug,
			"item", item.Name,
			"error", lookupErr,
		)
		return nil
	}

	type scored struct {
		product   models.CatalogProduct
		relevance float64
	}
	var candidates []scored
	for _, p := range products {
		if p.Price.IsNegative() {
			continue
		}
		if r := Relevance(query, p.Name); r >= m.cfg.RelevanceThreshold {
			candidates = append(candidates, scored{product: p, relevance: r})
		}
	}

	// Available products first so the cap never hides stock behind
	// out-of-stock listings
	sort.SliceStable(candidates, func(a, b int) bool {
		availA, availB := candidates[a].product.StockStatus.Available(), candidates[b].product.StockStatus.Available()
		if availA != availB {
			return availA
		}
		if candidates[a].relevance != candidates[b].relevance {
			return candidates[a].relevance > candidates[b].relevance
		}
		if !candidates[a].product.Price.Equal(candidates[b].product.Price) {
			return candidates[a].product.Price.LessThan(candidates[b].product.Price)
		}
		return candidates[a].product.ProductID < candidates[b].product.ProductID
	})
	if len(candidates) > m.cfg.MaxMatchesPerSupplier {
		candidates = candidates[:m.cfg.MaxMatchesPerSupplier]
	}

	matches := make([]models.SupplierMatch, 0, len(candidates))
	for _, cand := range candidates {
		matches = append(matches, toSupplierMatch(supplier, cand.product, cand.relevance))
	}
	return matches
}

// search consults the cache, then the catalog under the per-lookup timeout.
// The catalog call runs in its own goroutine so an adapter that ignores its
// context still cannot hold the request past the timeout.
func (m *SupplierMatcher) search(ctx context.Context, c catalog.Catalog, query string) ([]models.CatalogProduct, error) {
	key := cache.CatalogKey(c.Supplier().Slug, query)

	if m.cache != nil {
		var cached []models.CatalogProduct
		found, err := m.cache.Get(ctx, key, &cached)
		if err != nil {
			m.logger.Warn("catalog cache read failed", "key", key, "error", err)
		} else if found {
			return cached, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, m.cfg.LookupTimeout)
	defer cancel()

	type outcome struct {
		products []models.CatalogProduct
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("catalog panicked: %v", r)}
			}
		}()
		products, err := c.Search(lookupCtx, query)
		done <- outcome{products: products, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-lookupCtx.Done():
		return nil, fmt.Errorf("lookup timed out: %w", lookupCtx.Err())
	}
	if out.err != nil {
		return nil, out.err
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, out.products); err != nil {
			m.logger.Warn("catalog cache write failed", "key", key, "error", err)
		}
	}
	return out.products, nil
}

func toSupplierMatch(s models.Supplier, p models.CatalogProduct, relevance float64) models.SupplierMatch {
	delivery := s.Delivery
	if p.Delivery != nil {
		delivery = *p.Delivery
	}
	stock := p.StockStatus
	if stock == "" {
		stock = models.StockUnknown
	}

	match := models.SupplierMatch{
		ProductID:    p.ProductID,
		SupplierID:   s.ID,
		SupplierName: s.Name,
		SupplierSlug: s.Slug,
		ProductName:  p.Name,
		Brand:        p.Brand,
		SKU:          p.SKU,
		CurrentPrice: p.Price,
		RegularPrice: p.RegularPrice,
		StockStatus:  stock,
		ProductURL:   p.URL,
		ImageURL:     p.ImageURL,
		Delivery:     delivery,
		Relevance:    relevance,
	}

	if p.RegularPrice != nil && p.RegularPrice.GreaterThan(p.Price) {
		match.IsOnSale = true
		discount := p.RegularPrice.Sub(p.Price).
			Div(*p.RegularPrice).
			Mul(decimal.NewFromInt(100)).
			Round(2)
		match.DiscountPercentage = &discount
	}
	return match
}

// newComparisonItem dedups, orders and flags the merged candidates
func newComparisonItem(item models.ParsedMaterialItem, matches []models.SupplierMatch) models.ComparisonItem {
	type productKey struct {
		supplier string
		product  string
	}
	seen := make(map[productKey]bool, len(matches))
	unique := make([]models.SupplierMatch, 0, len(matches))
	for _, m := range matches {
		k := productKey{supplier: m.SupplierID.String(), product: m.ProductID}
		if seen[k] {
			continue
		}
		seen[k] = true
		m.IsRecommended = false
		unique = append(unique, m)
	}

	sort.SliceStable(unique, func(a, b int) bool {
		if matchLess(unique[a], unique[b]) {
			return true
		}
		if matchLess(unique[b], unique[a]) {
			return false
		}
		return unique[a].ProductName < unique[b].ProductName
	})

	ci := models.ComparisonItem{
		Name:         item.Name,
		Quantity:     item.Quantity,
		Unit:         item.Unit,
		OriginalText: item.OriginalText,
		Matches:      unique,
	}
	if idx := recommendedIndex(unique); idx >= 0 {
		unique[idx].IsRecommended = true
		price := unique[idx].CurrentPrice
		supplier := unique[idx].SupplierName
		ci.BestPrice = &price
		ci.BestSupplier = &supplier
	}
	return ci
}

// matchLess orders by price, then supplier name, then ids, so the cheapest
// choice is deterministic.
func matchLess(a, b models.SupplierMatch) bool {
	if !a.CurrentPrice.Equal(b.CurrentPrice) {
		return a.CurrentPrice.LessThan(b.CurrentPrice)
	}
	if a.SupplierName != b.SupplierName {
		return a.SupplierName < b.SupplierName
	}
	if a.SupplierID != b.SupplierID {
		return a.SupplierID.String() < b.SupplierID.String()
	}
	return a.ProductID < b.ProductID
}

// recommendedIndex is the cheapest available match, or -1
func recommendedIndex(matches []models.SupplierMatch) int {
	best := -1
	for i, m := range matches {
		if !m.StockStatus.Available() {
			continue
		}
		if best < 0 || matchLess(m, matches[best]) {
			best = i
		}
	}
	return best
}
