package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foxxcyber/trade-basket/internal/models"
)

// AssembleComparison builds the final result. The suppliers list covers
// every supplier seen in any item's matches, whatever the basket chose:
// item_count is how many items it can supply and total is what buying
// those items from it would cost.
func AssembleComparison(items []models.ComparisonItem, basket models.OptimisedBasket) (models.ComparisonResult, error) {
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return models.ComparisonResult{}, &InvalidQuantityError{Item: item.Name, Quantity: item.Quantity}
		}
	}

	order := []uuid.UUID{}
	summaries := make(map[uuid.UUID]*models.SupplierSummary)
	resultItems := make([]models.ComparisonItem, len(items))

	for i, item := range items {
		if item.Matches == nil {
			item.Matches = []models.SupplierMatch{}
		}
		resultItems[i] = item

		cheapest := make(map[uuid.UUID]decimal.Decimal)
		for _, m := range item.Matches {
			if _, ok := summaries[m.SupplierID]; !ok {
				summaries[m.SupplierID] = &models.SupplierSummary{
					SupplierID:   m.SupplierID,
					SupplierName: m.SupplierName,
					SupplierSlug: m.SupplierSlug,
					Total:        decimal.Zero,
					Delivery:     m.Delivery,
				}
				order = append(order, m.SupplierID)
			}
			if !m.StockStatus.Available() {
				continue
			}
			if current, ok := cheapest[m.SupplierID]; !ok || m.CurrentPrice.LessThan(current) {
				cheapest[m.SupplierID] = m.CurrentPrice
			}
		}

		for supplierID, price := range cheapest {
			s := summaries[supplierID]
			s.ItemCount++
			s.Total = s.Total.Add(price.Mul(item.Quantity))
		}
	}

	suppliers := make([]models.SupplierSummary, 0, len(order))
	for _, id := range order {
		suppliers = append(suppliers, *summaries[id])
	}
	sortSummaries(suppliers)

	if basket.SupplierSplit == nil {
		basket.SupplierSplit = []models.SupplierSummary{}
	}

	return models.ComparisonResult{
		Items:           resultItems,
		OptimisedBasket: basket,
		Suppliers:       suppliers,
	}, nil
}
