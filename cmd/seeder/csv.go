package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/foxxcyber/trade-basket/internal/catalog"
	"github.com/foxxcyber/trade-basket/internal/models"
)

// Column aliases seen in supplier price files
var columnAliases = map[string][]string{
	"product_code":  {"product_code", "code", "product_id", "id", "item_code"},
	"name":          {"name", "description", "product_name", "title"},
	"brand":         {"brand", "manufacturer"},
	"sku":           {"sku", "mpn", "part_number"},
	"price":         {"price", "sell_price", "price_inc_vat", "unit_price"},
	"regular_price": {"regular_price", "was_price", "rrp", "list_price"},
	"stock":         {"stock", "stock_status", "availability"},
	"url":           {"url", "link", "product_url"},
	"image_url":     {"image_url", "image", "image_link"},
}

// parseCatalogCSV reads a supplier price file. Rows that cannot be imported
// are skipped and described in the second return value.
func parseCatalogCSV(r io.Reader) ([]models.UpsertProductRequest, []string, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	present := make(map[string]int)
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		present[col] = i
	}
	cols := make(map[string]int)
	for field, aliases := range columnAliases {
		cols[field] = -1
		for _, a := range aliases {
			if i, ok := present[a]; ok {
				cols[field] = i
				break
			}
		}
	}
	for _, required := range []string{"product_code", "name", "price"} {
		if cols[required] < 0 {
			return nil, nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var products []models.UpsertProductRequest
	var skipped []string
	seen := make(map[string]int)
	line := 1

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("line %d: malformed row: %v", line, err))
			continue
		}

		field := func(name string) string {
			i := cols[name]
			if i < 0 || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		optional := func(name string) *string {
			if v := field(name); v != "" {
				return &v
			}
			return nil
		}

		price, err := catalog.ParsePrice(field("price"))
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("line %d: invalid price %q", line, field("price")))
			continue
		}

		p := models.UpsertProductRequest{
			ProductCode: field("product_code"),
			Name:        field("name"),
			Brand:       optional("brand"),
			SKU:         optional("sku"),
			Price:       price,
			StockStatus: catalog.NormalizeStock(field("stock")),
			URL:         field("url"),
			ImageURL:    optional("image_url"),
		}
		if v := field("regular_price"); v != "" {
			if rp, err := catalog.ParsePrice(v); err == nil {
				p.RegularPrice = &rp
			}
		}
		if err := p.Validate(); err != nil {
			skipped = append(skipped, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		// Later rows win for a repeated product code
		if i, ok := seen[p.ProductCode]; ok {
			products[i] = p
			continue
		}
		seen[p.ProductCode] = len(products)
		products = append(products, p)
	}

	return products, skipped, nil
}
