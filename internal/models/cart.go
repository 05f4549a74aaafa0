package models

// LineItem is one product and quantity in a cart, as submitted by the kiosk.
// Quantity may be fractional for goods sold by weight.
type LineItem struct {
	ProductLabel string  `json:"name"`
	Quantity     float64 `json:"quantity"`
}

// CartTotals holds the rounded cart amounts. Total always equals Subtotal + Tax.
type CartTotals struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}

// PricedLine is the pricing outcome of a single line item.
type PricedLine struct {
	ProductLabel string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	Matched      bool    `json:"matched"`
	UnitPrice    *Money  `json:"unit_price,omitempty"`
	LineValue    *Money  `json:"line_value,omitempty"`
}

// CartBreakdown is CartTotals plus the per-line detail that produced them.
type CartBreakdown struct {
	CartTotals
	Lines []PricedLine `json:"lines"`
}
