package models

import "github.com/shopspring/decimal"

// ParsedMaterialItem is a single line extracted from a materials list
type ParsedMaterialItem struct {
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	OriginalText string          `json:"original_text,omitempty"`
}

// ParseMaterialsRequest is the API request body for a parse preview
type ParseMaterialsRequest struct {
	Content string `json:"content"`
}

// ParseMaterialsResponse is the API response for a parse preview
type ParseMaterialsResponse struct {
	Items       []ParsedMaterialItem `json:"items"`
	TotalParsed int                  `json:"total_parsed"`
}
