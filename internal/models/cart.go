package models

import "github.com/shopspring/decimal"

// CartLine is one product entry of the in-progress order.
type CartLine struct {
	ProductID int             `json:"id"`
	Name      string          `json:"product"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns unitPrice × quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LinesTotal sums the subtotals of lines.
func LinesTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// LinesCount sums the quantities of lines.
func LinesCount(lines []CartLine) int {
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return count
}
