package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foxxcyber/trade-basket/internal/models"
)

// DefaultSavingsThreshold is the saving below which splitting an order
// across suppliers is not recommended.
var DefaultSavingsThreshold = decimal.NewFromInt(5)

var hundred = decimal.NewFromInt(100)

// BasketOptimiser compares the per-item cheapest basket against the best
// supplier able to fulfil the whole list. It holds no per-request state.
type BasketOptimiser struct {
	savingsThreshold decimal.Decimal
}

// NewBasketOptimiser creates an optimiser. A non-positive threshold uses
// DefaultSavingsThreshold.
func NewBasketOptimiser(savingsThreshold decimal.Decimal) *BasketOptimiser {
	if !savingsThreshold.IsPositive() {
		savingsThreshold = DefaultSavingsThreshold
	}
	return &BasketOptimiser{savingsThreshold: savingsThreshold}
}

type supplierTotal struct {
	id    uuid.UUID
	name  string
	total decimal.Decimal
}

func (a supplierTotal) less(b supplierTotal) bool {
	if !a.total.Equal(b.total) {
		return a.total.LessThan(b.total)
	}
	if a.name != b.name {
		return a.name < b.name
	}
	return a.id.String() < b.id.String()
}

// Optimise picks the cheapest available match per item and compares the
// total against the cheapest fully-covering single supplier. Items with no
// available match are left out of both totals. The result depends only on
// items, never on map or input ordering of matches.
func (o *BasketOptimiser) Optimise(items []models.ComparisonItem) models.OptimisedBasket {
	basket := models.OptimisedBasket{
		Total:               decimal.Zero,
		SingleSupplierTotal: decimal.Zero,
		Savings:             decimal.Zero,
		SavingsPercentage:   decimal.Zero,
		SupplierSplit:       []models.SupplierSummary{},
		Recommendation:      models.RecommendNone,
	}

	// priceMatrix[supplier][item] is that supplier's cheapest available price
	priceMatrix := make(map[uuid.UUID]map[int]decimal.Decimal)
	supplierNames := make(map[uuid.UUID]string)
	split := make(map[uuid.UUID]*models.SupplierSummary)
	sourced := 0

	for i, item := range items {
		idx := recommendedIndex(item.Matches)
		if idx < 0 {
			basket.UnsourcedCount++
			continue
		}
		sourced++

		chosen := item.Matches[idx]
		line := chosen.CurrentPrice.Mul(item.Quantity)
		basket.Total = basket.Total.Add(line)

		summary, ok := split[chosen.SupplierID]
		if !ok {
			summary = &models.SupplierSummary{
				SupplierID:   chosen.SupplierID,
				SupplierName: chosen.SupplierName,
				SupplierSlug: chosen.SupplierSlug,
				Total:        decimal.Zero,
				Delivery:     chosen.Delivery,
			}
			split[chosen.SupplierID] = summary
		}
		summary.ItemCount++
		summary.Total = summary.Total.Add(line)

		for _, m := range item.Matches {
			if !m.StockStatus.Available() {
				continue
			}
			prices, ok := priceMatrix[m.SupplierID]
			if !ok {
				prices = make(map[int]decimal.Decimal)
				priceMatrix[m.SupplierID] = prices
				supplierNames[m.SupplierID] = m.SupplierName
			}
			if current, ok := prices[i]; !ok || m.CurrentPrice.LessThan(current) {
				prices[i] = m.CurrentPrice
			}
		}
	}

	if sourced == 0 {
		return basket
	}

	var best *supplierTotal
	for supplierID, prices := range priceMatrix {
		if len(prices) != sourced {
			continue
		}
		candidate := supplierTotal{id: supplierID, name: supplierNames[supplierID], total: decimal.Zero}
		for i, price := range prices {
			candidate.total = candidate.total.Add(price.Mul(items[i].Quantity))
		}
		if best == nil || candidate.less(*best) {
			c := candidate
			best = &c
		}
	}

	if best != nil {
		basket.SingleSupplierTotal = best.total
		basket.SingleSupplierName = best.name
	} else {
		basket.SingleSupplierTotal = basket.Total
		basket.SingleSupplierName = models.SingleSupplierFallbackName
	}

	basket.Savings = basket.SingleSupplierTotal.Sub(basket.Total)
	if basket.Savings.IsNegative() {
		basket.Savings = decimal.Zero
	}
	if basket.SingleSupplierTotal.IsPositive() {
		basket.SavingsPercentage = basket.Savings.Div(basket.SingleSupplierTotal).Mul(hundred).Round(2)
	}

	for _, summary := range split {
		basket.SupplierSplit = append(basket.SupplierSplit, *summary)
	}
	sortSummaries(basket.SupplierSplit)

	switch {
	case best == nil:
		basket.Recommendation = models.RecommendMultiSupplier
	case len(basket.SupplierSplit) > 1 && basket.Savings.GreaterThanOrEqual(o.savingsThreshold):
		basket.Recommendation = models.RecommendMultiSupplier
	default:
		basket.Recommendation = models.RecommendSingleSupplier
	}

	return basket
}

func sortSummaries(summaries []models.SupplierSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].SupplierName != summaries[j].SupplierName {
			return summaries[i].SupplierName < summaries[j].SupplierName
		}
		return summaries[i].SupplierID.String() < summaries[j].SupplierID.String()
	})
}
